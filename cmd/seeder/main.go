package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/locvowork/fluentexcel/internal/bootstrap"
	"github.com/locvowork/fluentexcel/internal/logger"
)

func main() {
	file := flag.String("file", "", "Workbook (.xlsx) holding the employees to load")
	sheet := flag.String("sheet", "", "Sheet to read (defaults to the first sheet)")
	configPath := flag.String("config", "", "YAML column layout (overrides EXCEL_CONFIG_PATH)")

	flag.Parse()

	if *file == "" {
		flag.PrintDefaults()
		os.Exit(2)
	}
	if *configPath != "" {
		os.Setenv("EXCEL_CONFIG_PATH", *configPath)
	}

	ctx := context.Background()

	fmt.Println("Employee Seeder")
	fmt.Println(strings.Repeat("=", 50))

	app := bootstrap.NewApp()
	if err := app.Initialize(ctx); err != nil {
		logger.ErrorWithErr(ctx, err, "Failed to initialize application")
		log.Fatal(err)
	}
	defer app.DB.Close()

	f, err := os.Open(*file)
	if err != nil {
		log.Fatalf("Opening %s failed: %v", *file, err)
	}
	defer f.Close()

	n, err := app.EmployeeService.ImportEmployees(ctx, f, *sheet)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	fmt.Printf("Loaded %d employees from %s\n", n, *file)
}
