package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"vconv/internal/domain/media"
)

const (
	maxReplySize   = 1 << 20
	defaultTimeout = 30 * time.Second
)

// Options describes where the conversion server lives.
type Options struct {
	BaseURL          string
	UploadEndpoint   string
	StatusEndpoint   string
	DownloadEndpoint string
	// Timeout bounds status checks and the response wait of downloads.
	// Uploads are bounded only by their context.
	Timeout time.Duration
}

// Client talks to the conversion server over HTTP.
type Client struct {
	base             *url.URL
	uploadEndpoint   string
	statusEndpoint   string
	downloadEndpoint string

	// HTTP is used for status checks and downloads.
	HTTP *http.Client
	// Streaming is used for uploads, which may take far longer than Timeout.
	Streaming *http.Client
}

// NewClient parses the base URL and prepares the HTTP clients.
func NewClient(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimSpace(opts.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", opts.BaseURL)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	return &Client{
		base:             base,
		uploadEndpoint:   opts.UploadEndpoint,
		statusEndpoint:   opts.StatusEndpoint,
		downloadEndpoint: opts.DownloadEndpoint,
		HTTP:             &http.Client{Timeout: opts.Timeout},
		Streaming:        &http.Client{},
	}, nil
}

// Upload sends file as the single "file" field of a multipart POST and returns
// the job id assigned by the server. onProgress receives non-decreasing
// percentages, all of them before Upload returns.
func (c *Client) Upload(ctx context.Context, file media.File, onProgress func(percent int)) (string, error) {
	if file.Open == nil {
		return "", media.ValidationError(media.ReasonNoFile, media.MsgNoFile)
	}
	src, err := file.Open()
	if err != nil {
		return "", media.Wrap(media.KindNetwork, media.MsgUploadFailed, fmt.Errorf("open %s: %w", file.Name, err))
	}
	defer src.Close()

	progress := newProgressReader(src, file.Size, onProgress)
	defer progress.finish()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeFilePart(mw, file, progress))
	}()
	defer pr.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolve(c.uploadEndpoint), pr)
	if err != nil {
		return "", media.Wrap(media.KindNetwork, media.MsgUploadFailed, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.Streaming.Do(req)
	if err != nil {
		return "", uploadError(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReplySize))
	if err != nil {
		return "", uploadError(ctx, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var reply struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(body, &reply)
		serr := media.ServerError(reply.Error, media.MsgUploadFailed)
		serr.Err = fmt.Errorf("upload: unexpected status %d", resp.StatusCode)
		return "", serr
	}

	var reply struct {
		JobID string `json:"job_id"`
	}
	if err := json.Unmarshal(body, &reply); err != nil {
		return "", media.Wrap(media.KindProtocol, media.MsgBadResponse, err)
	}
	if reply.JobID == "" {
		return "", media.NewError(media.KindProtocol, media.MsgBadResponse)
	}

	progress.complete()
	return reply.JobID, nil
}

// CheckStatus performs one status request for jobID.
func (c *Client) CheckStatus(ctx context.Context, jobID string) (media.StatusRecord, error) {
	target := c.resolve(c.statusEndpoint) + url.PathEscape(jobID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return media.StatusRecord{}, media.Wrap(media.KindNetwork, media.MsgStatusFailed, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return media.StatusRecord{}, transportError(ctx, err, media.MsgStatusFailed)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return media.StatusRecord{}, media.Wrap(media.KindNetwork, media.MsgStatusFailed,
			fmt.Errorf("status %s: unexpected status %d", jobID, resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReplySize))
	if err != nil {
		return media.StatusRecord{}, transportError(ctx, err, media.MsgStatusFailed)
	}
	return media.ParseStatus(body)
}

// DownloadURL turns a server reference into a fetchable URL. Absolute URLs are
// returned as they are, rooted paths are resolved against the base and bare
// names are placed under the download endpoint.
func (c *Client) DownloadURL(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	if u, err := url.Parse(ref); err == nil && u.IsAbs() {
		return ref
	}
	if strings.HasPrefix(ref, "/") {
		return c.resolve(ref)
	}
	return c.resolve(c.downloadEndpoint) + url.PathEscape(ref)
}

// Download streams the converted file behind ref into w.
func (c *Client) Download(ctx context.Context, ref string, w io.Writer) (int64, error) {
	target := c.DownloadURL(ref)
	if target == "" {
		return 0, errors.New("download: empty reference")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.Streaming.Do(req)
	if err != nil {
		return 0, transportError(ctx, err, media.MsgNetwork)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, media.Wrap(media.KindNetwork, media.MsgNetwork,
			fmt.Errorf("download %s: unexpected status %d", target, resp.StatusCode))
	}
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, transportError(ctx, err, media.MsgNetwork)
	}
	return n, nil
}

func (c *Client) resolve(endpoint string) string {
	ref, err := url.Parse(endpoint)
	if err != nil {
		return strings.TrimRight(c.base.String(), "/") + endpoint
	}
	return c.base.ResolveReference(ref).String()
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func writeFilePart(mw *multipart.Writer, file media.File, src io.Reader) error {
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(file.Name)))
	h.Set("Content-Type", contentType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, src); err != nil {
		return err
	}
	return mw.Close()
}

func transportError(ctx context.Context, err error, fallback string) *media.Error {
	merr := media.Wrap(media.KindNetwork, fallback, err)
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		merr.Reason = media.ReasonAborted
	}
	return merr
}

func uploadError(ctx context.Context, err error) *media.Error {
	merr := transportError(ctx, err, media.MsgNetwork)
	if merr.Reason == media.ReasonAborted {
		merr.Message = media.MsgUploadAborted
	}
	return merr
}
