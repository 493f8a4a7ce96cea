package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mentoro/arena/internal/config"
	"github.com/mentoro/arena/internal/database"
	"github.com/mentoro/arena/internal/models"
	"github.com/mentoro/arena/internal/repositories"
	"github.com/xuri/excelize/v2"
)

// Expected columns, first row is a header:
// title | description | difficulty | test cases (JSON array) | starter code
const minColumns = 4

func main() {
	path := flag.String("file", "problems.xlsx", "spreadsheet with problem templates")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("failed to load config:", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatal("failed to connect database:", err)
	}
	defer database.Close(db)

	if err := database.AutoMigrate(db); err != nil {
		log.Fatal(err)
	}

	f, err := excelize.OpenFile(*path)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	problems, rowErrors := readProblems(f)
	for _, rowErr := range rowErrors {
		fmt.Println(rowErr)
	}

	repo := repositories.NewProblemRepository(db)
	ctx := context.Background()

	imported := 0
	for i := range problems {
		if err := repo.UpsertProblem(ctx, &problems[i]); err != nil {
			fmt.Printf("Error importing %q: %v\n", problems[i].Title, err)
			continue
		}
		imported++
	}

	total, err := repo.CountProblems(ctx)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Imported %d problems, %d skipped, %d in database\n", imported, len(rowErrors), total)
}

// readProblems parses every sheet of the workbook. Invalid rows are reported
// and skipped.
func readProblems(f *excelize.File) ([]models.Problem, []error) {
	var problems []models.Problem
	var rowErrors []error

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			rowErrors = append(rowErrors, fmt.Errorf("sheet %s: %w", sheet, err))
			continue
		}

		for i, row := range rows {
			if i == 0 || len(row) == 0 {
				continue
			}
			problem, err := parseRow(row)
			if err != nil {
				rowErrors = append(rowErrors, fmt.Errorf("sheet %s row %d: %w", sheet, i+1, err))
				continue
			}
			problems = append(problems, problem)
		}
	}

	return problems, rowErrors
}

func parseRow(row []string) (models.Problem, error) {
	if len(row) < minColumns {
		return models.Problem{}, fmt.Errorf("expected at least %d columns, got %d", minColumns, len(row))
	}

	title := strings.TrimSpace(row[0])
	if title == "" {
		return models.Problem{}, fmt.Errorf("title is empty")
	}

	difficulty := strings.ToLower(strings.TrimSpace(row[2]))
	if !models.ValidDifficulty(difficulty) {
		return models.Problem{}, fmt.Errorf("unknown difficulty %q", row[2])
	}

	var cases []models.TestCase
	if err := json.Unmarshal([]byte(row[3]), &cases); err != nil {
		return models.Problem{}, fmt.Errorf("test cases: %w", err)
	}
	if len(cases) == 0 {
		return models.Problem{}, fmt.Errorf("no test cases")
	}

	problem := models.Problem{
		Title:       title,
		Description: strings.TrimSpace(row[1]),
		Difficulty:  difficulty,
	}
	if len(row) > 4 {
		problem.StarterCode = row[4]
	}
	if err := problem.SetTestCases(cases); err != nil {
		return models.Problem{}, err
	}
	return problem, nil
}
