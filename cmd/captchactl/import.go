package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"dental-captcha/internal/app"
)

type imageRecord struct {
	Filename string `json:"filename"`
	URL      string `json:"image_url"`
}

type questionRecord struct {
	Text string `json:"question_text"`
	Type string `json:"question_type"`
}

func newImportImagesCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "import-images [file.json]",
		Short: "Import images from a JSON array of {filename, image_url}",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var records []imageRecord
			if err := readJSON(args[0], &records); err != nil {
				return err
			}
			items := make([]app.ImageImport, len(records))
			for i, r := range records {
				items[i] = app.ImageImport{Filename: r.Filename, URL: r.URL}
			}
			result, err := e.services.Catalog.ImportImages(cmd.Context(), items)
			if err != nil {
				return err
			}
			cmd.Printf("Imported %d images, skipped %d existing\n", result.Imported, result.Skipped)
			return nil
		},
	}
}

func newImportQuestionsCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "import-questions [file.json]",
		Short: "Import active questions from a JSON array of {question_text, question_type}",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var records []questionRecord
			if err := readJSON(args[0], &records); err != nil {
				return err
			}
			items := make([]app.QuestionImport, len(records))
			for i, r := range records {
				items[i] = app.QuestionImport{Text: r.Text, Type: r.Type}
			}
			result, err := e.services.Catalog.ImportQuestions(cmd.Context(), items)
			if err != nil {
				return err
			}
			cmd.Printf("Imported %d questions\n", result.Imported)
			return nil
		},
	}
}

func readJSON(path string, out interface{}) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s failed: %w", path, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s failed: %w", path, err)
	}
	return nil
}
