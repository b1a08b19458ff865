package main

import (
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/clickmoment/clickmoment/internal/uploader"
)

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var retry bool

	cmd := &cobra.Command{
		Use:   "analyze <project-id> [video-file]",
		Short: "Upload a video and analyze its thumbnail moments",
		Long: `Analyze probes the video locally, uploads it to the analysis backend's
storage, records the upload on the project, and requests a thumbnail-moment
analysis. Videos of 15 minutes or longer are rejected before any upload.

With --retry the upload is skipped and the analysis re-runs against the
project's already-stored video.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.requireSession(); err != nil {
				return err
			}
			if ctx.cfg.AnalysisURL == "" {
				return errors.New("analysis_url is not configured; set it in the config file")
			}

			u := uploader.New(ctx.api.backend, ctx.api, ctx.api, ctx.cfg.UserID)

			var result *uploader.Result
			if retry {
				if len(args) > 1 {
					return errors.New("--retry takes no video file")
				}
				result = u.Retry(cmd.Context(), args[0])
			} else {
				if len(args) < 2 {
					return errors.New("a video file is required unless --retry is set")
				}
				filePath := args[1]
				contentType := mime.TypeByExtension(filepath.Ext(filePath))
				if !strings.HasPrefix(contentType, "video/") {
					return fmt.Errorf("%s does not look like a video file", filePath)
				}

				out := cmd.OutOrStdout()
				result = u.Run(cmd.Context(), args[0], filePath, contentType, func(fraction float64) {
					fmt.Fprintf(out, "\rUploading... %3.0f%%", fraction*100)
					if fraction >= 1 {
						fmt.Fprintln(out)
					}
				})
			}

			return reportResult(cmd, result)
		},
	}
	cmd.Flags().BoolVar(&retry, "retry", false, "re-run the analysis for an already-uploaded video")
	return cmd
}

func reportResult(cmd *cobra.Command, result *uploader.Result) error {
	out := cmd.OutOrStdout()

	switch result.Status {
	case uploader.StatusComplete:
		fmt.Fprintln(out, "Analysis complete")
		if result.Err != nil {
			fmt.Fprintf(out, "Warning: the result could not be saved to the project (%v)\n", result.Err)
		}
	case uploader.StatusLimitReached:
		fmt.Fprintln(out, "Analysis limit reached; the video was uploaded and kept for later")
		return nil
	case uploader.StatusSaveFailed:
		fmt.Fprintf(out, "Uploaded to %s but could not record it on the project\n", result.GCSPath)
		return result.Err
	case uploader.StatusAnalysisFailed:
		fmt.Fprintln(out, "The video is stored; rerun with --retry once the backend recovers")
		return result.Err
	default:
		return result.Err
	}

	if len(result.Verdicts) == 0 {
		fmt.Fprintln(out, "No thumbnail moments were returned")
		return nil
	}

	rows := make([][]string, 0, len(result.Verdicts))
	for _, v := range result.Verdicts {
		rows = append(rows, []string{
			v.Slot,
			v.Moment.Timestamp,
			fmt.Sprintf("%.0f%%", v.Fraction*100),
			v.Moment.MomentSummary,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"SLOT", "TIMESTAMP", "POSITION", "MOMENT"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft},
	))
	return nil
}
