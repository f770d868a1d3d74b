package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coolbeans/statrec/pkg/audit"
	"github.com/coolbeans/statrec/pkg/config"
	"github.com/coolbeans/statrec/pkg/crosswalk"
	"github.com/coolbeans/statrec/pkg/docx"
	"github.com/coolbeans/statrec/pkg/doi"
	"github.com/coolbeans/statrec/pkg/extract"
	"github.com/coolbeans/statrec/pkg/linkcheck"
	"github.com/coolbeans/statrec/pkg/record"
	"github.com/coolbeans/statrec/pkg/render"
	"github.com/coolbeans/statrec/pkg/ror"
	"github.com/coolbeans/statrec/pkg/vocab"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "statrec",
		Short: "State records metadata pipeline",
		Long: `Statrec turns manually curated state legal metadata documents into
validated, published archive records.

It reads a DOCX workbook of titles, articles, statutes, and requirements and
produces:
  - A schema-validated XML record per jurisdiction
  - A browsable HTML rendering of the same record
  - An audit log of every vocabulary correction and dropped term
  - Link health and metadata crosswalk reports for published records`,
		Version: version,
	}

	rootCmd.AddCommand(extractCmd())
	rootCmd.AddCommand(checklinksCmd())
	rootCmd.AddCommand(doiCmd())
	rootCmd.AddCommand(rorCmd())
	rootCmd.AddCommand(crosswalkCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func extractCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract a jurisdiction document into a validated XML record",
		Long: `Extract runs the full pipeline for one jurisdiction: scan the DOCX for
titles and articles, write the XML record, validate it against the schema,
audit hyperlink coverage, and render the HTML view.

Example:
  statrec extract --config california.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(configPath)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "pipeline configuration YAML (required)")
	cmd.MarkFlagRequired("config")
	return cmd
}

func runExtract(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	doc, err := docx.Open(cfg.InputDoc)
	if err != nil {
		return err
	}

	tmpPath, finalPath := cfg.AuditPaths()
	auditLog, err := audit.New(tmpPath, finalPath)
	if err != nil {
		return err
	}

	records := record.NewSet()
	scanner := extract.NewScanner(doc, cfg.ExtractConfig(), records, vocab.NewValidator(auditLog))

	if _, err := scanner.ScanTitles(); err != nil {
		return err
	}
	fmt.Printf("Scanned %d titles\n", records.Len())

	if _, err := scanner.ScanArticles(); err != nil {
		return err
	}

	xmlPath, err := record.WriteXMLFile(cfg.RecordMeta(), records, cfg.OutDir)
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", xmlPath)

	if err := record.ValidateXMLFile(xmlPath, cfg.XSDFile); err != nil {
		return err
	}
	fmt.Println("Schema validation passed")

	missing, err := extract.CheckSourceCoverage(doc, xmlPath)
	if err != nil {
		return err
	}
	for _, link := range missing {
		fmt.Fprintf(os.Stderr, "WARNING: document link not present in XML: %s (%s)\n",
			link.URL, strings.Join(link.Texts, "; "))
	}

	htmlPath, err := render.HTMLFile(cfg.RecordMeta(), records, cfg.OutDir, cfg.TemplateFile)
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", htmlPath)

	if err := auditLog.Flush(); err != nil {
		return err
	}
	fmt.Printf("Audit log: %s\n", finalPath)
	return nil
}

func checklinksCmd() *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "checklinks <state> <record.xml>",
		Short: "Check every source URL in a published XML record",
		Long: `Checklinks fetches each distinct source URL in the record and writes
<state>_bad_links.csv listing the ones that fail, with an empty column for
corrected URLs.

Example:
  statrec checklinks California california_20250314.xml`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, xmlPath := args[0], args[1]

			checker := linkcheck.NewChecker(nil, nil)
			results, err := checker.CheckFile(cmd.Context(), xmlPath)
			if err != nil {
				return err
			}

			bad := 0
			for _, r := range results {
				if r.Bad() {
					bad++
				}
			}

			csvPath, err := linkcheck.WriteBadLinksCSV(results, outDir, state)
			if err != nil {
				return err
			}
			fmt.Printf("Checked %d links, %d bad; report: %s\n", len(results), bad, csvPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&outDir, "out", ".", "directory for the bad links CSV")
	return cmd
}

func doiCmd() *cobra.Command {
	var credentialsPath, env string

	cmd := &cobra.Command{
		Use:   "doi",
		Short: "Register archive study DOIs",
	}
	cmd.PersistentFlags().StringVar(&credentialsPath, "credentials", "credentials.json", "API credentials JSON")
	cmd.PersistentFlags().StringVar(&env, "env", doi.EnvTest, "environment: test or prod")

	registerCmd := &cobra.Command{
		Use:   "register <drafts.csv>",
		Short: "Mint DOIs for every draft row not already marked Success",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := doi.LoadCredentials(credentialsPath, env)
			if err != nil {
				return err
			}

			drafts, err := doi.ReadDraftCSV(args[0])
			if err != nil {
				return err
			}

			client := doi.NewClient(creds, nil)
			minted := client.RegisterBatch(cmd.Context(), drafts)

			if err := doi.WriteMintedCSV(args[0], drafts); err != nil {
				return err
			}
			fmt.Printf("Minted %d of %d drafts\n", minted, len(drafts))
			return nil
		},
	}

	relateCmd := &cobra.Command{
		Use:   "relate <doi> <related-doi>...",
		Short: "Attach related publication DOIs to an existing DOI",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := doi.LoadCredentials(credentialsPath, env)
			if err != nil {
				return err
			}

			related := make([]doi.RelatedIdentifier, 0, len(args)-1)
			for _, id := range args[1:] {
				related = append(related, doi.RelatedIdentifier{
					RelatedIdentifier:     id,
					RelatedIdentifierType: "DOI",
					RelationType:          "IsSupplementTo",
				})
			}

			client := doi.NewClient(creds, nil)
			if err := client.Relate(cmd.Context(), args[0], related); err != nil {
				return err
			}
			fmt.Printf("Related %d publications to %s\n", len(related), args[0])
			return nil
		},
	}

	cmd.AddCommand(registerCmd)
	cmd.AddCommand(relateCmd)
	return cmd
}

func rorCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "ror",
		Short: "Reconcile organizations against the ROR registry",
	}

	matchCmd := &cobra.Command{
		Use:   "match <organizations.csv>",
		Short: "Attach ROR identifiers to a CSV of organizations",
		Long: `Match queries the registry's affiliation endpoint for each organization
and appends ROR ID and ROR Name columns. Optional Country and State columns
in the input verify the chosen match.

Example:
  statrec ror match organizations.csv --out organizations_ror.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outPath
			if out == "" {
				out = strings.TrimSuffix(args[0], ".csv") + "_ror.csv"
			}

			client := ror.NewClient("", nil)
			summary, err := client.MatchCSV(cmd.Context(), args[0], out)
			if err != nil {
				return err
			}
			fmt.Printf("Matched %d organizations, %d unmatched; wrote %s\n",
				summary.Matched, summary.Unmatched, out)
			return nil
		},
	}

	cmd.AddCommand(matchCmd)
	return cmd
}

func crosswalkCmd() *cobra.Command {
	var studyPath, mappingPath string

	cmd := &cobra.Command{
		Use:   "crosswalk",
		Short: "Render study metadata in standard schemas",
	}

	renderCmd := &cobra.Command{
		Use:   "render <template>",
		Short: "Render the study document through a named schema template",
		Long: fmt.Sprintf(`Render writes the chosen schema rendering to stdout.

Available templates: %s

Example:
  statrec crosswalk render datacite --study study.json`, strings.Join(crosswalk.Templates(), ", ")),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			study, err := crosswalk.LoadStudy(studyPath)
			if err != nil {
				return err
			}

			var mapping map[string]string
			if mappingPath != "" {
				if mapping, err = crosswalk.LoadMapping(mappingPath); err != nil {
					return err
				}
			}

			return crosswalk.Render(os.Stdout, args[0], study, mapping)
		},
	}

	renderCmd.Flags().StringVar(&studyPath, "study", "study.json", "exported study JSON document")
	renderCmd.Flags().StringVar(&mappingPath, "mapping", "", "optional field mapping JSON")

	cmd.AddCommand(renderCmd)
	return cmd
}
