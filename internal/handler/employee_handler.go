package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/locvowork/fluentexcel/internal/domain"
	"github.com/locvowork/fluentexcel/internal/logger"
	"github.com/locvowork/fluentexcel/internal/service"
	"github.com/locvowork/fluentexcel/internal/service/serviceutils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type EmployeeHandler struct {
	svc service.EmployeeService
}

func NewEmployeeHandler(svc service.EmployeeService) *EmployeeHandler {
	return &EmployeeHandler{svc: svc}
}

func (h *EmployeeHandler) ListHandler(c echo.Context) error {
	employees, err := h.svc.List(c.Request().Context(), filterFromQuery(c))
	if err != nil {
		return serviceutils.ResponseError(c, http.StatusInternalServerError, "Failed to list employees", err)
	}

	return serviceutils.ResponseSuccess(c, http.StatusOK, "Employees listed successfully", employees)
}

func (h *EmployeeHandler) ExportHandler(c echo.Context) error {
	ctx := c.Request().Context()
	data, err := h.svc.ExportEmployees(ctx, filterFromQuery(c))
	if err != nil {
		logger.ErrorWithErr(ctx, err, "Failed to export employees")
		return serviceutils.ResponseError(c, http.StatusInternalServerError, "Failed to generate Excel file", err)
	}

	filename := fmt.Sprintf("employees_%s.xlsx", time.Now().Format("20060102"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Response().Header().Set(echo.HeaderContentLength, strconv.Itoa(len(data)))
	return c.Blob(http.StatusOK, xlsxContentType, data)
}

func (h *EmployeeHandler) ImportHandler(c echo.Context) error {
	ctx := c.Request().Context()
	fh, err := c.FormFile("file")
	if err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Missing workbook in form field \"file\"", err)
	}
	file, err := fh.Open()
	if err != nil {
		return serviceutils.ResponseError(c, http.StatusBadRequest, "Failed to read uploaded file", err)
	}
	defer file.Close()

	n, err := h.svc.ImportEmployees(ctx, file, c.FormValue("sheet"))
	if err != nil {
		logger.ErrorWithErr(ctx, err, "Failed to import %s", fh.Filename)
		return serviceutils.ResponseError(c, serviceutils.StatusFromError(err), "Failed to import employees", err)
	}

	return serviceutils.ResponseSuccess(c, http.StatusOK, "Employees imported successfully", map[string]int{"imported": n})
}

func filterFromQuery(c echo.Context) domain.EmployeeFilter {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	return domain.EmployeeFilter{
		Limit:  limit,
		Offset: offset,
	}
}
