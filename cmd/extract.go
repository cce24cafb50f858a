package cmd

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/skill-matcher/internal/aptitude"
	"github.com/spigell/skill-matcher/internal/engine"
	"github.com/spigell/skill-matcher/internal/percolation"
)

const maxParallelExtractions = 4

var extractCmd = &cobra.Command{
	Use:   "extract FILE...",
	Short: "Extract candidate skills from CV documents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExtract(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().Int("limit", 10, "page size")
	extractCmd.Flags().Int("offset", 0, "page offset")
	extractCmd.Flags().Bool("count", false, "print only the number of extractable skills")
	extractCmd.Flags().String("mime-type", "", "MIME type of every file (default: guessed from the extension, then sniffed)")
}

type extractResult struct {
	File       string                  `json:"file"`
	Count      *int                    `json:"count,omitempty"`
	Connection *percolation.Connection `json:"skills,omitempty"`
}

func runExtract(cmd *cobra.Command, paths []string) error {
	ctx := cmdContext(cmd)

	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	config, err := getConfig()
	if err != nil {
		return err
	}

	eng, closeEngine, err := buildEngine(ctx, config, log, nil, aptitude.StaticStore{})
	if err != nil {
		return err
	}
	defer closeEngine()

	limit, _ := cmd.Flags().GetInt("limit")
	offset, _ := cmd.Flags().GetInt("offset")
	countOnly, _ := cmd.Flags().GetBool("count")
	mimeType, _ := cmd.Flags().GetString("mime-type")

	results := make([]extractResult, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelExtractions)

	for i, path := range paths {
		g.Go(func() error {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			file := engine.File{
				Name:     filepath.Base(path),
				MIMEType: mimeType,
				Reader:   f,
			}
			if file.MIMEType == "" {
				file.MIMEType = mime.TypeByExtension(filepath.Ext(path))
			}

			results[i].File = path
			if countOnly {
				n, err := eng.CountExtractableSkills(gctx, file)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				results[i].Count = &n
				return nil
			}

			conn, err := eng.ExtractSkillsFromDocument(gctx, file, limit, offset)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			results[i].Connection = conn
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	log.Info("extraction finished", zap.Int("files", len(paths)))

	return printJSON(cmd.OutOrStdout(), results)
}
