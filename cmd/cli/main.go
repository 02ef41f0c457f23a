package main

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yourusername/mediashelf/internal/domain"
)

var (
	serverURL   string
	noAutoStart bool
	rootCmd     = &cobra.Command{
		Use:           "mediashelf",
		Short:         "mediashelf CLI - media download manager",
		Long:          `A command-line interface for starting, pausing and resuming media downloads on a mediashelf server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8090", "Server URL")
	rootCmd.PersistentFlags().BoolVar(&noAutoStart, "no-auto-start", false, "Don't auto-start server if not running")

	rootCmd.AddCommand(addCmd, listCmd, statsCmd, getCmd)
	rootCmd.AddCommand(cancelCmd, pauseCmd, resumeCmd, retryCmd, removeCmd)
	rootCmd.AddCommand(pauseAllCmd, resumeAllCmd, settingsCmd)

	addCmd.Flags().StringP("format", "f", "", "Fetcher format id (resolved by the server when empty)")
	addCmd.Flags().StringP("dir", "d", "", "Folder below the download directory")
	addCmd.Flags().StringP("title", "t", "", "Title used for the file name")
	addCmd.Flags().StringP("mode", "m", "", "Format choice when no format is given (original, planned)")
	addCmd.Flags().Int("height", 0, "Maximum video height for planned mode")
	addCmd.Flags().String("lang", "", "Audio language for planned mode")
	addCmd.Flags().Bool("batch", false, "Queue all URLs as one batch, numbered in argument order")

	listCmd.Flags().StringP("status", "s", "", "Filter by status")
	settingsCmd.Flags().Int("max-batch", 0, "Set the number of batch downloads that may run at once")
}

// ensureServer checks if server is running and starts it if needed (unless --no-auto-start)
func ensureServer() *apiClient {
	if !noAutoStart {
		if err := ensureServerRunning(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}
	return newAPIClient(serverURL)
}

var addCmd = &cobra.Command{
	Use:   "add [url...]",
	Short: "Start one download, or several as a batch",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := ensureServer()

		formatID, _ := cmd.Flags().GetString("format")
		saveDir, _ := cmd.Flags().GetString("dir")
		title, _ := cmd.Flags().GetString("title")
		mode, _ := cmd.Flags().GetString("mode")
		height, _ := cmd.Flags().GetInt("height")
		lang, _ := cmd.Flags().GetString("lang")
		batch, _ := cmd.Flags().GetBool("batch")

		if batch || len(args) > 1 {
			items := make([]map[string]interface{}, 0, len(args))
			for _, u := range args {
				item := map[string]interface{}{"url": u}
				if formatID != "" {
					item["formatId"] = formatID
				}
				items = append(items, item)
			}
			payload := map[string]interface{}{
				"saveDir":  saveDir,
				"items":    items,
				"mode":     mode,
				"height":   height,
				"language": lang,
			}
			var result struct {
				BatchID string   `json:"batchId"`
				IDs     []string `json:"ids"`
			}
			if err := client.do(http.MethodPost, "/api/v1/downloads/batch", payload, &result); err != nil {
				return err
			}
			fmt.Printf("Batch %s queued with %d downloads\n", result.BatchID, len(result.IDs))
			for i, id := range result.IDs {
				fmt.Printf("  %02d  %s\n", i+1, id)
			}
			return nil
		}

		payload := map[string]interface{}{
			"url":      args[0],
			"formatId": formatID,
			"saveDir":  saveDir,
			"mode":     mode,
			"height":   height,
			"language": lang,
		}
		if title != "" {
			payload["title"] = title
		}

		var rec domain.DownloadRecord
		if err := client.do(http.MethodPost, "/api/v1/downloads", payload, &rec); err != nil {
			return err
		}
		fmt.Printf("Download started!\n")
		fmt.Printf("ID:     %s\n", rec.ID)
		fmt.Printf("Format: %s\n", rec.FormatID)
		fmt.Printf("Status: %s\n", rec.Status)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all downloads, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := ensureServer()
		status, _ := cmd.Flags().GetString("status")

		path := "/api/v1/downloads"
		if status != "" {
			path += "?status=" + url.QueryEscape(status)
		}

		var records []domain.DownloadRecord
		if err := client.do(http.MethodGet, path, nil, &records); err != nil {
			return err
		}
		printRecords(os.Stdout, records)
		return nil
	},
}

func printRecords(out io.Writer, records []domain.DownloadRecord) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tPROGRESS\tSPEED\tETA\tTITLE")
	for _, r := range records {
		title := r.URL
		if r.Title != nil {
			title = *r.Title
		}
		fmt.Fprintf(w, "%s\t%s\t%.1f%%\t%s\t%s\t%s\n",
			truncate(r.ID, 8),
			r.Status,
			r.Progress,
			r.Speed,
			r.ETA,
			truncate(title, 40))
	}
	w.Flush()
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show download statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := ensureServer()

		var stats domain.DownloadStats
		if err := client.do(http.MethodGet, "/api/v1/downloads/stats", nil, &stats); err != nil {
			return err
		}

		fmt.Println("Download Statistics:")
		fmt.Printf("  Total:        %d\n", stats.Total)
		fmt.Printf("  Queued:       %d\n", stats.Queued)
		fmt.Printf("  Starting:     %d\n", stats.Starting)
		fmt.Printf("  Downloading:  %d\n", stats.Downloading)
		fmt.Printf("  Finished:     %d\n", stats.Finished)
		fmt.Printf("  Failed:       %d\n", stats.Failed)
		fmt.Printf("  Cancelled:    %d\n", stats.Cancelled)
		fmt.Printf("  Paused:       %d\n", stats.Paused)
		fmt.Printf("  Batch slots:  %d/%d\n", stats.BatchWorkers, stats.MaxBatch)
		return nil
	},
}

var getCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Get download details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := ensureServer()

		var d domain.DownloadRecord
		if err := client.do(http.MethodGet, "/api/v1/downloads/"+url.PathEscape(args[0]), nil, &d); err != nil {
			return err
		}

		fmt.Printf("Download Details:\n")
		fmt.Printf("  ID:       %s\n", d.ID)
		fmt.Printf("  URL:      %s\n", d.URL)
		fmt.Printf("  Status:   %s\n", d.Status)
		fmt.Printf("  Progress: %.1f%% (%s, ETA %s)\n", d.Progress, d.Speed, d.ETA)
		fmt.Printf("  Format:   %s\n", d.FormatID)
		fmt.Printf("  Folder:   %s\n", d.SaveDir)
		fmt.Printf("  Created:  %s\n", d.Timestamp.Format("2006-01-02 15:04:05"))
		if d.Filename != nil {
			fmt.Printf("  File:     %s\n", *d.Filename)
		}
		if d.BatchID != nil && d.Index != nil {
			fmt.Printf("  Batch:    %s #%d\n", *d.BatchID, *d.Index)
		}
		if d.Error != nil {
			fmt.Printf("  Error:    %s\n", *d.Error)
		}
		return nil
	},
}

// actionCmd builds a command that POSTs to /api/v1/downloads/:id/<action>
func actionCmd(action, short, done string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " [id]",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := ensureServer()

			var result map[string]interface{}
			if err := client.do(http.MethodPost, "/api/v1/downloads/"+url.PathEscape(args[0])+"/"+action, nil, &result); err != nil {
				return err
			}
			fmt.Println(done)
			if id, ok := result["id"].(string); ok {
				fmt.Printf("New ID: %s\n", id)
			}
			return nil
		},
	}
}

var (
	cancelCmd = actionCmd("cancel", "Cancel a download and delete its partial files", "Download cancelled")
	pauseCmd  = actionCmd("pause", "Pause a running download", "Download paused")
	resumeCmd = actionCmd("resume", "Resume a paused download", "Download resumed")
	retryCmd  = actionCmd("retry", "Retry a failed or cancelled download", "Download restarted")
)

var removeCmd = &cobra.Command{
	Use:   "remove [id]",
	Short: "Remove a download from history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := ensureServer()
		if err := client.do(http.MethodDelete, "/api/v1/downloads/"+url.PathEscape(args[0]), nil, nil); err != nil {
			return err
		}
		fmt.Println("Download removed")
		return nil
	},
}

// bulkCmd builds pause-all / resume-all
func bulkCmd(name, short, verb string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := ensureServer()

			var result struct {
				Count int `json:"count"`
			}
			if err := client.do(http.MethodPost, "/api/v1/downloads/"+name, nil, &result); err != nil {
				return err
			}
			fmt.Printf("%s %d downloads\n", verb, result.Count)
			return nil
		},
	}
}

var (
	pauseAllCmd  = bulkCmd("pause-all", "Pause every active or queued download", "Paused")
	resumeAllCmd = bulkCmd("resume-all", "Resume every paused download", "Resumed")
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change runtime settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := ensureServer()

		var settings domain.Settings
		if cmd.Flags().Changed("max-batch") {
			maxBatch, _ := cmd.Flags().GetInt("max-batch")
			patch := domain.SettingsPatch{MaxConcurrentPlaylistDownloads: &maxBatch}
			if err := client.do(http.MethodPatch, "/api/v1/settings", patch, &settings); err != nil {
				return err
			}
		} else if err := client.do(http.MethodGet, "/api/v1/settings", nil, &settings); err != nil {
			return err
		}

		fmt.Printf("Max concurrent batch downloads: %d\n", settings.MaxConcurrentPlaylistDownloads)
		return nil
	},
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
