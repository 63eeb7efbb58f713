package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sbomd/services/ctl"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var apiBase string

	cmd := &cobra.Command{
		Use:           "sbomdctl",
		Short:         "Client for the SBOM generation service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&apiBase, "api", envOr("SBOMD_API", "http://localhost:8080"), "Base URL of the API")

	cmd.AddCommand(newGenerateCommand(&apiBase))
	cmd.AddCommand(newRequestsCommand(&apiBase))
	cmd.AddCommand(newSbomsCommand(&apiBase))
	return cmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func clientFor(apiBase *string) (*ctl.Client, error) {
	return ctl.NewClient(*apiBase)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func readConfigFile(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	return os.ReadFile(path)
}

func newGenerateCommand(apiBase *string) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Submit generation requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Optional config file (JSON or YAML)")

	kinds := []struct {
		use      string
		kind     string
		needsArg bool
	}{
		{"build <build-id>", "build", true},
		{"operation <operation-id>", "operation", true},
		{"analysis", "analysis", false},
		{"image", "image", false},
		{"rpm <advisory-id>", "rpm", true},
	}

	for _, k := range kinds {
		k := k
		sub := &cobra.Command{
			Use:   k.use,
			Short: fmt.Sprintf("Request generation for a %s", k.kind),
			Args:  cobra.RangeArgs(0, 1),
			RunE: func(cmd *cobra.Command, args []string) error {
				identifier := ""
				if k.needsArg {
					if len(args) != 1 {
						return fmt.Errorf("an identifier argument is required")
					}
					identifier = args[0]
				}

				config, err := readConfigFile(configPath)
				if err != nil {
					return err
				}

				client, err := clientFor(apiBase)
				if err != nil {
					return err
				}
				req, err := client.Generate(commandContext(cmd), k.kind, identifier, config)
				if err != nil {
					return err
				}
				return printJSON(req)
			},
		}
		cmd.AddCommand(sub)
	}
	return cmd
}

func addListFlags(cmd *cobra.Command, opts *ctl.ListOptions) {
	cmd.Flags().StringVar(&opts.Query, "query", "", "RSQL filter expression")
	cmd.Flags().StringVar(&opts.Sort, "sort", "", "Sort expression (field=asc= or field=desc=)")
	cmd.Flags().IntVar(&opts.PageIndex, "page-index", 0, "Page index")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", 0, "Page size")
}

func newRequestsCommand(apiBase *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "requests",
		Short: "Inspect generation requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var opts ctl.ListOptions
	list := &cobra.Command{
		Use:   "list",
		Short: "List generation requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := clientFor(apiBase)
			if err != nil {
				return err
			}
			page, err := client.ListRequests(commandContext(cmd), opts)
			if err != nil {
				return err
			}
			return printJSON(page)
		},
	}
	addListFlags(list, &opts)

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one generation request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := clientFor(apiBase)
			if err != nil {
				return err
			}
			req, err := client.GetRequest(commandContext(cmd), args[0])
			if err != nil {
				return err
			}
			return printJSON(req)
		},
	}

	cmd.AddCommand(list)
	cmd.AddCommand(get)
	return cmd
}

func newSbomsCommand(apiBase *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sboms",
		Short: "Inspect stored manifests",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	var opts ctl.ListOptions
	list := &cobra.Command{
		Use:   "list",
		Short: "List stored manifests",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := clientFor(apiBase)
			if err != nil {
				return err
			}
			page, err := client.ListSboms(commandContext(cmd), opts)
			if err != nil {
				return err
			}
			return printJSON(page)
		},
	}
	addListFlags(list, &opts)

	var rawBom bool
	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one manifest record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := clientFor(apiBase)
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)
			if rawBom {
				bom, err := client.GetBom(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Println(string(bom))
				return nil
			}
			sbom, err := client.GetSbom(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(sbom)
		},
	}
	get.Flags().BoolVar(&rawBom, "bom", false, "Print the raw CycloneDX document")

	cmd.AddCommand(list)
	cmd.AddCommand(get)
	return cmd
}
