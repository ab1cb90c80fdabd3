//cmd/seeder/main.go
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/unclebandit/coldmail-backend/internal/app"
	"github.com/unclebandit/coldmail-backend/internal/config"
	"github.com/unclebandit/coldmail-backend/internal/contactsource"
	"github.com/unclebandit/coldmail-backend/internal/logger"
	"github.com/unclebandit/coldmail-backend/internal/service"
)

// Seeds the configured store with sample contacts and a starter template.
// Pass a CSV file to import it instead of the built-in sample sheet.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format).WithComponent("seeder")

	ctx := context.Background()
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise")
	}
	defer a.Close()

	var source contactsource.Source = contactsource.SampleSheet()
	if len(os.Args) > 1 {
		f, err := os.Open(os.Args[1])
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open contacts file")
		}
		defer f.Close()
		source = contactsource.NewCSVSource(f)
	}

	rows, err := source.Rows(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read contacts")
	}

	result, err := a.Contacts.ImportContacts(ctx, rows)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to import contacts")
	}
	for _, e := range result.Errors {
		log.Warn().Msg(e)
	}

	if err := seedTemplate(ctx, a.Templates); err != nil {
		log.Fatal().Err(err).Msg("failed to seed template")
	}

	fmt.Printf("Seeded %d contacts\n", result.Count)
}

func seedTemplate(ctx context.Context, templates *service.TemplateService) error {
	existing, err := templates.ListTemplates(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	_, err = templates.CreateTemplate(ctx, service.TemplateInput{
		Name:    "Introduction",
		Subject: "Quick question, {{firstName}}",
		Body:    "<p>Hi {{firstName}},</p><p>I came across {{company}} and wanted to reach out about your work as {{position}}.</p>",
	})
	return err
}
