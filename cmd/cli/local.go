package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/yourusername/tubefetch/internal/app"
	"github.com/yourusername/tubefetch/internal/domain"
	"github.com/yourusername/tubefetch/pkg/logger"
)

// openLocal wires the download stack in-process. Logs go to stderr at warn
// level so they do not break the progress bars. The database may be shared
// with a running server, so interrupted jobs are left for the server to
// recover at its next start.
func openLocal(ctx context.Context) (*app.Services, error) {
	config, err := app.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(logger.Config{Level: "warn", Format: "console", OutputPath: "stderr"})
	if err != nil {
		return nil, err
	}

	return app.NewServices(ctx, config, log)
}

// userError replaces an error with the message the UI would show
func userError(err error) error {
	return fmt.Errorf("%s", domain.UserMessage(err))
}

var infoCmd = &cobra.Command{
	Use:   "info [url]",
	Short: "List the streams and download modes of a video",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		services, err := openLocal(ctx)
		if err != nil {
			return err
		}
		defer services.Close()
		manager := services.Manager

		video, err := manager.FetchVideo(ctx, args[0])
		if err != nil {
			return userError(err)
		}

		fmt.Printf("Video Found: %s\n", video.Title)
		if !manager.MergeAvailable() {
			fmt.Println("\nFFmpeg Not Found! Best Quality and Manual Quality need FFmpeg on the PATH.")
		}

		modes := manager.Modes(video)
		def, _ := app.DefaultMode(modes)
		fmt.Println("\nDownload options:")
		for _, m := range modes {
			marker := " "
			if m == def {
				marker = "*"
			}
			fmt.Printf(" %s %-12s %s\n", marker, m, m.Label())
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		printStreams(w, "Progressive", video.Streams.Progressive)
		printStreams(w, "Video only", video.Streams.Video)
		printStreams(w, "Audio only", video.Streams.Audio)
		return w.Flush()
	},
}

func printStreams(w *tabwriter.Writer, title string, streams []domain.StreamOption) {
	if len(streams) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s:\n", title)
	fmt.Fprintln(w, "  ITAG\tSTREAM\tMIME")
	for _, s := range streams {
		fmt.Fprintf(w, "  %d\t%s\t%s\n", s.Itag, s.Label(), s.MimeType)
	}
}

var getCmd = &cobra.Command{
	Use:   "get [url]",
	Short: "Download a video in the chosen mode",
	Long: `Download a video. Without --mode the best mode available is used:
auto when ffmpeg is installed, progressive otherwise.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		services, err := openLocal(ctx)
		if err != nil {
			return err
		}
		defer services.Close()
		manager := services.Manager

		video, err := manager.FetchVideo(ctx, args[0])
		if err != nil {
			return userError(err)
		}
		fmt.Printf("Video Found: %s\n", video.Title)

		mode, _ := cmd.Flags().GetString("mode")
		req := app.DownloadRequest{Mode: domain.DownloadMode(mode)}
		req.VideoItag, _ = cmd.Flags().GetInt("video-itag")
		req.AudioItag, _ = cmd.Flags().GetInt("audio-itag")
		req.Itag, _ = cmd.Flags().GetInt("itag")
		if req.Mode == "" {
			def, ok := app.DefaultMode(manager.Modes(video))
			if !ok {
				return fmt.Errorf("No downloadable options found.")
			}
			req.Mode = def
		}

		job, err := manager.CreateJob(video.ID, req)
		if err != nil {
			return userError(err)
		}
		if err := manager.Start(job); err != nil {
			return err
		}

		updates, unsubscribe, err := manager.Subscribe(job.ID)
		if err != nil {
			return err
		}
		defer unsubscribe()

		finished := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				manager.Cancel(job.ID)
			case <-finished:
			}
		}()

		var bars progressRenderer
		for snap := range updates {
			bars.update(snap)
		}
		bars.finish()
		close(finished)

		final, err := manager.GetJob(job.ID)
		if err != nil {
			return err
		}
		switch final.Status {
		case domain.StatusCompleted:
		case domain.StatusCancelled:
			return fmt.Errorf("download cancelled")
		default:
			return fmt.Errorf("%s", final.ErrorMessage)
		}

		out, _ := cmd.Flags().GetString("out")
		return deliver(context.WithoutCancel(ctx), manager, final, out)
	},
}

// deliver hands the finished file to the user: moved into out for local
// storage, or printed as a signed URL for remote storage
func deliver(ctx context.Context, manager *app.DownloadManager, job *domain.DownloadJob, out string) error {
	delivery, err := manager.OpenArtifact(ctx, job.ID)
	if err != nil {
		return userError(err)
	}

	fmt.Println("Download Successful!")
	if job.MergeStatus != "" {
		fmt.Println(job.MergeStatus)
	}

	if delivery.URL != "" {
		fmt.Printf("File: %s | Size: %.2f MB\n", delivery.Name, float64(job.FileSize)/(1024*1024))
		fmt.Printf("Link: %s\n", delivery.URL)
		return nil
	}

	if err := os.MkdirAll(out, 0755); err != nil {
		return err
	}
	dest := filepath.Join(out, delivery.Name)
	if err := moveFile(delivery.Path, dest); err != nil {
		return fmt.Errorf("failed to save %s: %w", dest, err)
	}
	if err := manager.MarkDelivered(ctx, job.ID); err != nil {
		return err
	}

	fmt.Printf("File: %s | Size: %.2f MB\n", dest, float64(job.FileSize)/(1024*1024))
	return nil
}

// moveFile renames src to dst, copying when they are on different filesystems
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	outFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(outFile, in); err != nil {
		outFile.Close()
		os.Remove(dst)
		return err
	}
	if err := outFile.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}

// progressRenderer draws one byte progress bar per download phase
type progressRenderer struct {
	bar   *progressbar.ProgressBar
	phase string
	total int64
}

func (r *progressRenderer) update(job domain.DownloadJob) {
	if job.Status == domain.StatusMerging {
		if r.phase != job.Phase {
			r.finish()
			r.phase = job.Phase
			fmt.Fprintln(os.Stderr, job.MergeStatus)
		}
		return
	}
	if job.Status != domain.StatusDownloading || job.Phase == "" {
		return
	}

	if job.Phase != r.phase || r.bar == nil {
		r.finish()
		r.phase = job.Phase
		r.total = -1
		r.bar = progressbar.DefaultBytes(-1, job.Phase)
	}
	if total := job.Progress.BytesTotal; total > 0 && total != r.total {
		r.total = total
		r.bar.ChangeMax64(total)
	}
	r.bar.Set64(job.Progress.BytesDone)
}

func (r *progressRenderer) finish() {
	if r.bar != nil {
		r.bar.Finish()
		fmt.Fprintln(os.Stderr)
		r.bar = nil
	}
}

func init() {
	getCmd.Flags().StringP("mode", "m", "", "Download mode (auto, manual, progressive)")
	getCmd.Flags().Int("video-itag", 0, "Video stream itag (manual mode)")
	getCmd.Flags().Int("audio-itag", 0, "Audio stream itag (manual mode)")
	getCmd.Flags().Int("itag", 0, "Stream itag (progressive mode)")
	getCmd.Flags().StringP("out", "o", ".", "Directory to save the file to")
}
