package cli

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"vconv/internal/application/lifecycle"
	"vconv/internal/application/polling"
	"vconv/internal/domain/media"
	"vconv/internal/infrastructure/filesystem"
	"vconv/internal/infrastructure/history"
	"vconv/internal/infrastructure/remote"
)

var errCancelled = errors.New("conversion cancelled")

type convertOptions struct {
	output     string
	noDownload bool
}

func newConvertCommand(a *app) *cobra.Command {
	opts := &convertOptions{}
	cmd := &cobra.Command{
		Use:   "convert <file>",
		Short: "Upload a video, wait for the conversion and download the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.convert(cmd, args[0], opts)
		},
	}
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Where to save the converted file (default: server file name in the current directory)")
	cmd.Flags().BoolVar(&opts.noDownload, "no-download", false, "Only print the download URL")
	return cmd
}

func (a *app) convert(cmd *cobra.Command, src string, opts *convertOptions) error {
	out := cmd.OutOrStdout()
	cc := a.cfg.Client

	file, err := filesystem.OpenLocal(src)
	if err != nil {
		return err
	}

	client, err := remote.NewClient(remote.Options{
		BaseURL:          cc.BaseURL,
		UploadEndpoint:   cc.UploadEndpoint,
		StatusEndpoint:   cc.StatusEndpoint,
		DownloadEndpoint: cc.DownloadEndpoint,
		Timeout:          cc.RequestTimeout,
	})
	if err != nil {
		return err
	}

	ctrl := lifecycle.New(client, polling.NewScheduler(nil), lifecycle.Options{
		Limits:       media.Limits{MaxFileSize: cc.MaxFileSizeBytes},
		PollInterval: cc.PollInterval,
		Logger:       a.logger,
	})
	defer ctrl.Close()

	term := newTerminal(out, file)
	ctrl.Observe(term)

	if err := ctrl.SetFile(file); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := ctrl.Start(); err != nil {
		return err
	}

	select {
	case <-term.done:
	case <-ctx.Done():
		ctrl.Reset()
		<-term.done
		return errCancelled
	}

	job := ctrl.Job()
	a.record(ctx, job)

	if job.Status != media.StatusCompleted {
		if job.LastError != nil {
			return job.LastError
		}
		return fmt.Errorf("conversion ended in state %s", job.Status)
	}

	if info := job.VideoInfo; info != nil && info.Width > 0 {
		fmt.Fprintf(out, "source: %dx%d, %.1fs, audio: %t\n", info.Width, info.Height, info.Duration, info.HasAudio)
	}

	link := client.DownloadURL(job.DownloadURL)
	if opts.noDownload {
		fmt.Fprintln(out, link)
		return nil
	}

	target := opts.output
	if target == "" {
		target = defaultOutputName(link, file.Name)
	}
	n, err := download(ctx, client, job.DownloadURL, target)
	if err != nil {
		return fmt.Errorf("download %s: %w", link, err)
	}
	fmt.Fprintf(out, "saved %s (%s)\n", target, humanize.IBytes(uint64(n)))
	return nil
}

func (a *app) record(ctx context.Context, job media.Job) {
	entry, err := history.EntryFromJob(job)
	if err != nil {
		a.logger.Printf("history skipped: %v", err)
		return
	}
	repo, err := a.openHistory()
	if err != nil {
		a.logger.Printf("history unavailable: %v", err)
		return
	}
	defer repo.Close()

	if _, err := repo.Record(context.WithoutCancel(ctx), entry); err != nil {
		a.logger.Printf("history write failed: %v", err)
	}
}

func download(ctx context.Context, client *remote.Client, ref, target string) (int64, error) {
	tmp := target + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return 0, err
	}

	n, err := client.Download(ctx, ref, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return 0, err
	}
	return n, os.Rename(tmp, target)
}

func defaultOutputName(link, sourceName string) string {
	if u, err := url.Parse(link); err == nil {
		if name := path.Base(u.Path); name != "" && name != "." && name != "/" {
			return name
		}
	}
	return strings.TrimSuffix(sourceName, filepath.Ext(sourceName)) + "_convert.mp4"
}
