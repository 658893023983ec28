package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ccoveille/go-safecast"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/zippdf/zippdf/internal/convert"
	"github.com/zippdf/zippdf/internal/pdf"
)

var convertCmdFlags struct {
	Title          string
	Author         string
	Out            string
	WorkDir        string
	MaxSize        string
	KeepUnnumbered bool
}

var convertCmd = &cobra.Command{
	Use:   "convert <archive.zip>",
	Short: "Convert a local ZIP archive",
	Long:  `Run the conversion pipeline on a local archive without Telegram. The PDF is written next to the archive unless --out is given.`,
	Example: `zippdf convert chapter.zip
zippdf convert chapter.zip --title "Chapter 1" --author "Jane" --out /tmp/chapter.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src := args[0]
		out := convertCmdFlags.Out
		if out == "" {
			out = strings.TrimSuffix(src, filepath.Ext(src)) + ".pdf"
		}

		cfg := convert.Config{
			WorkDir:        convertCmdFlags.WorkDir,
			KeepUnnumbered: convertCmdFlags.KeepUnnumbered,
		}
		if convertCmdFlags.MaxSize != "" {
			size, err := humanize.ParseBytes(convertCmdFlags.MaxSize)
			if err != nil {
				return fmt.Errorf("invalid --max-size: %w", err)
			}
			if cfg.MaxExtractedSize, err = safecast.Convert[int64](size); err != nil {
				return fmt.Errorf("invalid --max-size: %w", err)
			}
		}

		res, err := convert.RunLocal(cmd.Context(), cfg, src, out, pdf.Options{
			Title:  convertCmdFlags.Title,
			Author: convertCmdFlags.Author,
		})
		if err != nil {
			return err
		}
		log.Info("Converted archive", "out", out, "pages", res.Pages, "duration", res.Duration)
		return nil
	},
}

func init() {
	convertCmd.Flags().StringVar(&convertCmdFlags.Title, "title", "", "PDF title")
	convertCmd.Flags().StringVar(&convertCmdFlags.Author, "author", "", "PDF author")
	convertCmd.Flags().StringVarP(&convertCmdFlags.Out, "out", "o", "", "Output file")
	convertCmd.Flags().StringVar(&convertCmdFlags.WorkDir, "work-dir", "", "Directory for intermediate files (default: system temp dir)")
	convertCmd.Flags().StringVar(&convertCmdFlags.MaxSize, "max-size", "", "Maximum uncompressed archive size, e.g. 500MB")
	convertCmd.Flags().BoolVar(&convertCmdFlags.KeepUnnumbered, "keep-unnumbered", false, "Keep images without a page number")
	rootCmd.AddCommand(convertCmd)
}
