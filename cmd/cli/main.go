package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	rootCmd   = &cobra.Command{
		Use:   "media-fetch",
		Short: "Media-Fetch CLI - Download media from social platforms",
		Long:  `A command-line interface for fetching media from Instagram, TikTok and other platforms.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")

	listCmd.Flags().String("status", "", "Filter by status (succeeded, failed)")
	listCmd.Flags().String("platform", "", "Filter by platform")

	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(releaseCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(statsCmd)
}

var fetchCmd = &cobra.Command{
	Use:   "fetch [url]",
	Short: "Fetch media from a URL",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		payload := map[string]string{"url": args[0]}
		data, _ := json.Marshal(payload)

		resp, err := http.Post(serverURL+"/api/v1/fetch", "application/json", bytes.NewBuffer(data))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			fmt.Fprintf(os.Stderr, "Error: %s\n", string(body))
			os.Exit(1)
		}

		var result map[string]interface{}
		json.Unmarshal(body, &result)
		fmt.Printf("Fetch completed!\n")
		fmt.Printf("  File:  %s\n", result["file_path"])
		fmt.Printf("  Title: %s\n", result["title"])
		fmt.Printf("  Type:  %s\n", result["media_type"])
		if result["duration"] != nil {
			fmt.Printf("  Duration: %vs\n", result["duration"])
		}
	},
}

var releaseCmd = &cobra.Command{
	Use:   "release [file-path]",
	Short: "Remove a previously fetched file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		payload := map[string]string{"file_path": args[0]}
		data, _ := json.Marshal(payload)

		resp, err := http.Post(serverURL+"/api/v1/release", "application/json", bytes.NewBuffer(data))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			fmt.Fprintf(os.Stderr, "Error: %s\n", string(body))
			os.Exit(1)
		}
		fmt.Println("File released")
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List fetch history",
	Run: func(cmd *cobra.Command, args []string) {
		status, _ := cmd.Flags().GetString("status")
		platform, _ := cmd.Flags().GetString("platform")

		url := serverURL + "/api/v1/fetches"
		sep := "?"
		if status != "" {
			url += sep + "status=" + status
			sep = "&"
		}
		if platform != "" {
			url += sep + "platform=" + platform
		}

		resp, err := http.Get(url)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			fmt.Fprintf(os.Stderr, "Error: %s\n", string(body))
			os.Exit(1)
		}

		var result struct {
			Fetches []map[string]interface{} `json:"fetches"`
		}
		json.Unmarshal(body, &result)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tURL\tPLATFORM\tSTATUS\tCREATED")
		for _, f := range result.Fetches {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				truncate(stringField(f, "id"), 8),
				truncate(stringField(f, "url"), 40),
				f["platform"],
				f["status"],
				f["created_at"])
		}
		w.Flush()
	},
}

var getCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Get fetch details",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		resp, err := http.Get(serverURL + "/api/v1/fetches/" + args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			fmt.Fprintf(os.Stderr, "Error: %s\n", string(body))
			os.Exit(1)
		}

		var fetch map[string]interface{}
		json.Unmarshal(body, &fetch)

		fmt.Printf("Fetch Details:\n")
		fmt.Printf("  ID:       %s\n", fetch["id"])
		fmt.Printf("  URL:      %s\n", fetch["url"])
		fmt.Printf("  Platform: %s\n", fetch["platform"])
		fmt.Printf("  Status:   %s\n", fetch["status"])
		fmt.Printf("  Created:  %s\n", fetch["created_at"])
		if fetch["file_path"] != nil {
			fmt.Printf("  File:     %s\n", fetch["file_path"])
		}
		if fetch["error_kind"] != nil {
			fmt.Printf("  Error:    %s\n", fetch["error_kind"])
		}
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show fetch statistics",
	Run: func(cmd *cobra.Command, args []string) {
		resp, err := http.Get(serverURL + "/api/v1/fetches/stats")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			fmt.Fprintf(os.Stderr, "Error: %s\n", string(body))
			os.Exit(1)
		}

		var stats map[string]interface{}
		json.Unmarshal(body, &stats)

		fmt.Println("Fetch Statistics:")
		fmt.Printf("  Total:     %v\n", stats["total"])
		fmt.Printf("  Succeeded: %v\n", stats["succeeded"])
		fmt.Printf("  Failed:    %v\n", stats["failed"])
	},
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func stringField(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
