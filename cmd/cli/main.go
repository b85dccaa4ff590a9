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
	serverURL   string
	configPath  string
	noAutoStart bool
	rootCmd     = &cobra.Command{
		Use:   "tubefetch",
		Short: "tubefetch - YouTube downloader with stream selection and ffmpeg merge",
		Long: `Download YouTube videos as a single progressive file, or as the best
(or hand-picked) video and audio streams merged with ffmpeg.

info and get run locally; jobs, stats, cancel and delete talk to a running server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8501", "Server URL")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVar(&noAutoStart, "no-auto-start", false, "Don't auto-start the server if it is not running")

	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(configCmd)
}

// ensureServer starts the server when needed (unless --no-auto-start)
func ensureServer() {
	if noAutoStart {
		return
	}
	if err := ensureServerRunning(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
}

// apiError extracts the message of an API error response
func apiError(body []byte) error {
	var resp struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &resp) == nil && resp.Error != "" {
		return fmt.Errorf("%s", resp.Error)
	}
	return fmt.Errorf("%s", string(body))
}

// call sends a request to the server and decodes a JSON response into out
func call(method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, serverURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return apiError(data)
	}
	if out != nil {
		return json.Unmarshal(data, out)
	}
	return nil
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List downloads known to the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ensureServer()

		path := "/api/v1/downloads"
		if status, _ := cmd.Flags().GetString("status"); status != "" {
			path += "?status=" + status
		}

		var jobs []map[string]interface{}
		if err := call(http.MethodGet, path, nil, &jobs); err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tMODE\tSTATUS\tFILE\tCREATED")
		for _, j := range jobs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				truncate(str(j["id"]), 8),
				truncate(str(j["title"]), 40),
				str(j["mode"]),
				str(j["status"]),
				truncate(str(j["file_name"]), 40),
				str(j["created_at"]))
		}
		return w.Flush()
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show download statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ensureServer()

		var stats map[string]interface{}
		if err := call(http.MethodGet, "/api/v1/downloads/stats", nil, &stats); err != nil {
			return err
		}

		fmt.Println("Download Statistics:")
		for _, key := range []string{"total", "pending", "downloading", "merging", "completed", "delivered", "failed", "cancelled", "expired"} {
			fmt.Printf("  %-12s %v\n", key+":", stats[key])
		}
		return nil
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel [id]",
	Short: "Cancel a running download",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ensureServer()
		if err := call(http.MethodPost, "/api/v1/downloads/"+args[0]+"/cancel", nil, nil); err != nil {
			return err
		}
		fmt.Println("Download cancelled")
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a download and its file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ensureServer()
		if err := call(http.MethodDelete, "/api/v1/downloads/"+args[0], nil, nil); err != nil {
			return err
		}
		fmt.Println("Download deleted")
		return nil
	},
}

func init() {
	jobsCmd.Flags().StringP("status", "s", "", "Filter by status")
}

func str(v interface{}) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
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
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
