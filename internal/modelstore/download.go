package modelstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/user/moodreel/internal/logging"
)

// MinArtifactSize 小于该字节数的文件视为下载不完整
const MinArtifactSize = 1000

var driveFileID = regexp.MustCompile(`/d/([\w-]+)`)

// Downloader 模型文件下载器，兼容 Google Drive 的大文件确认页
type Downloader struct {
	client *http.Client
}

// NewDownloader 创建下载器
func NewDownloader(timeout time.Duration) *Downloader {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Downloader{client: &http.Client{Timeout: timeout}}
}

// NeedsDownload 文件不存在或过小时需要重新下载
func NeedsDownload(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return true
	}
	return info.Size() < MinArtifactSize
}

// Ensure 缺失或过小时下载文件
func (d *Downloader) Ensure(ctx context.Context, path, rawURL string) error {
	if !NeedsDownload(path) {
		return nil
	}
	logging.Warn().Str("file", path).Msg("[ModelStore] 文件缺失或过小，开始下载")
	return d.Download(ctx, path, rawURL)
}

// Download 强制下载文件到 path（先写临时文件再重命名）
func (d *Downloader) Download(ctx context.Context, path, rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("no download url for %s", filepath.Base(path))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}

	resp, err := d.fetch(ctx, directURL(rawURL))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".part-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	n, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}

	logging.Info().Str("file", path).Int64("bytes", n).Msg("[ModelStore] 下载完成")
	return nil
}

// fetch 发起请求；遇到 Google Drive 的病毒扫描确认页时自动确认
func (d *Downloader) fetch(ctx context.Context, target string) (*http.Response, error) {
	resp, err := d.get(ctx, target)
	if err != nil {
		return nil, err
	}

	// 旧版确认：download_warning Cookie
	for _, c := range resp.Cookies() {
		if strings.HasPrefix(c.Name, "download_warning") {
			resp.Body.Close()
			return d.get(ctx, withQuery(target, url.Values{"confirm": {c.Value}}))
		}
	}

	if !strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		return resp, nil
	}

	// 新版确认：HTML 表单
	defer resp.Body.Close()
	confirmURL, err := confirmFormURL(resp.Body, target)
	if err != nil {
		return nil, err
	}
	return d.get(ctx, confirmURL)
}

func (d *Downloader) get(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", target, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("download %s: HTTP %d", target, resp.StatusCode)
	}
	return resp, nil
}

// confirmFormURL 从确认页中解析下载表单，拼出真正的下载地址
func confirmFormURL(body io.Reader, base string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return "", fmt.Errorf("parse confirm page: %w", err)
	}

	form := doc.Find("form#download-form").First()
	if form.Length() == 0 {
		form = doc.Find("form").FilterFunction(func(_ int, s *goquery.Selection) bool {
			action, _ := s.Attr("action")
			return strings.Contains(action, "download")
		}).First()
	}
	if form.Length() == 0 {
		return "", fmt.Errorf("unexpected html response without download form")
	}

	action, _ := form.Attr("action")
	actionURL, err := url.Parse(action)
	if err != nil {
		return "", fmt.Errorf("bad form action %q: %w", action, err)
	}
	if baseURL, err := url.Parse(base); err == nil {
		actionURL = baseURL.ResolveReference(actionURL)
	}

	params := url.Values{}
	form.Find("input[type=hidden]").Each(func(_ int, s *goquery.Selection) {
		name, ok := s.Attr("name")
		if !ok || name == "" {
			return
		}
		value, _ := s.Attr("value")
		params.Set(name, value)
	})

	return withQuery(actionURL.String(), params), nil
}

// directURL 把 Google Drive 分享链接改写为直接下载地址，其它链接原样返回
func directURL(raw string) string {
	if !strings.Contains(raw, "drive.google.com") {
		return raw
	}
	m := driveFileID.FindStringSubmatch(raw)
	if m == nil {
		return raw
	}
	return "https://drive.google.com/uc?export=download&id=" + m[1]
}

func withQuery(raw string, extra url.Values) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	for k, vs := range extra {
		for _, v := range vs {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}
