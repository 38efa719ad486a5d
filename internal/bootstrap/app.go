package bootstrap

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/locvowork/fluentexcel/internal/config"
	"github.com/locvowork/fluentexcel/internal/database"
	"github.com/locvowork/fluentexcel/internal/handler"
	"github.com/locvowork/fluentexcel/internal/logger"
	"github.com/locvowork/fluentexcel/internal/repository"
	"github.com/locvowork/fluentexcel/internal/service"
)

type App struct {
	Echo *echo.Echo
	DB   *sql.DB
	// EmployeeService is exposed for command line tools sharing the wiring.
	EmployeeService service.EmployeeService
}

func NewApp() *App {
	return &App{
		Echo: echo.New(),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	// Load environment configuration
	if err := config.LoadEnvConfig(); err != nil {
		return fmt.Errorf("failed to load env config: %w", err)
	}
	cfg := config.DefaultEnvConfig

	logger.InitLogging(cfg.LOG_FILE_PATH, cfg.LOG_LEVEL)
	logger.InfoLog(ctx, "Environment variables loaded successfully")

	dbConfig := database.Config{
		Host:            cfg.DB_HOST,
		Port:            cfg.DB_PORT,
		User:            cfg.DB_USER,
		Password:        cfg.DB_PASSWORD,
		DBName:          cfg.DB_NAME,
		SSLMode:         cfg.DB_SSL_MODE,
		MaxOpenConns:    cfg.DB_MAX_OPEN_CONNS,
		MaxIdleConns:    cfg.DB_MAX_IDLE_CONNS,
		ConnMaxLifetime: cfg.DB_CONN_MAX_LIFETIME,
	}

	db, err := database.NewPostgresDB(ctx, dbConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	a.DB = db

	if err := database.EnsureSchema(ctx, db); err != nil {
		return fmt.Errorf("failed to prepare schema: %w", err)
	}

	excelCfg := service.ExcelConfig{
		SheetName:  cfg.EXPORT_SHEET_NAME,
		AutoSize:   cfg.EXPORT_AUTOSIZE,
		StartRow:   cfg.IMPORT_START_ROW,
		Author:     cfg.EXCEL_AUTHOR,
		Company:    cfg.EXCEL_COMPANY,
		Subject:    cfg.EXCEL_SUBJECT,
		ConfigPath: cfg.EXCEL_CONFIG_PATH,
	}
	setting, err := service.NewExcelSetting(excelCfg)
	if err != nil {
		return fmt.Errorf("failed to build spreadsheet mapping: %w", err)
	}

	// Initialize dependencies
	empRepo := repository.NewEmployeeRepository(db, cfg.IMPORT_BATCH_SIZE)
	a.EmployeeService = service.NewEmployeeService(empRepo, setting, excelCfg)
	empHandler := handler.NewEmployeeHandler(a.EmployeeService)

	a.RegisterMiddlewares()
	a.RegisterRoutes(empHandler)

	return nil
}

func (a *App) RegisterMiddlewares() {
	a.Echo.Use(middleware.Logger())
	a.Echo.Use(middleware.Recover())
	a.Echo.Use(middleware.CORS())
	a.Echo.Use(RequestID)
}

// RequestID tags the request context logger with the incoming X-Request-ID,
// generating one when the client sent none.
func RequestID(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Request().Header.Get(echo.HeaderXRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		ctx := logger.WithLogger(c.Request().Context(), map[string]interface{}{"request_id": id})
		c.SetRequest(c.Request().WithContext(ctx))
		c.Response().Header().Set(echo.HeaderXRequestID, id)
		return next(c)
	}
}

func (a *App) RegisterRoutes(empHandler *handler.EmployeeHandler) {
	a.Echo.GET("/employees", empHandler.ListHandler)
	a.Echo.GET("/employees/export", empHandler.ExportHandler)
	a.Echo.POST("/employees/import", empHandler.ImportHandler)
}

func (a *App) Run() error {
	defer a.DB.Close()
	return a.Echo.Start(":" + config.DefaultEnvConfig.APP_PORT)
}
