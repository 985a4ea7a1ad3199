// SPDX-License-Identifier: BSD-2-Clause
//
// Copyright (c) 2026 The dropwatch contributors.

// Package czds wraps github.com/lanrat/czds for authenticated access to
// the zone catalog and per-zone downloads, adding the session caching,
// single-flight refresh, and retry/backoff policy this pipeline needs on
// top of the bare library client.
package czds

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cavaliergopher/grab/v3"
	"github.com/cenkalti/backoff/v4"
	"github.com/dropwatch/core/internal/errs"
	"github.com/dropwatch/core/internal/logger"
	"github.com/lanrat/czds"
)

// inactivityTimeout is the per-byte stall timeout spec.md's Timeouts line
// names for zone downloads: if no new bytes arrive for this long, the
// attempt is abandoned and retried rather than left to hang indefinitely.
const inactivityTimeout = 60 * time.Second

// tokenTTL is conservatively shorter than the access token lifetime CZDS
// actually issues, so a download that straddles the boundary re-authenticates
// instead of failing partway through with a 401.
const tokenTTL = 23 * time.Hour

// ZoneInfo is one catalog entry resolved to a TLD name.
type ZoneInfo struct {
	Tld string
	URL string
}

// HeadInfo is the per-zone metadata returned before a download.
type HeadInfo struct {
	Size         int64
	LastModified time.Time
}

// Client authenticates on first use, with concurrent callers collapsed into
// one in-flight authentication (a mutex plus a "refreshing" channel). Once
// established, the session behind ListZones and Head is kept for the life of
// the Client: it is not renewed on expiry and a 401 does not trigger
// re-authentication. The Download path uses its own bearer token from
// downloadToken, which is renewed once tokenTTL has passed.
type Client struct {
	inner *czds.Client

	mu            sync.Mutex
	authenticated bool
	refreshing    chan struct{}

	// username, password and authURL duplicate what inner already holds:
	// the wrapped library has no hook for attaching Range headers or a
	// stall timeout to the actual zone transfer, so the download path
	// below authenticates and fetches independently over plain
	// net/http + grab rather than through inner.
	username string
	password string
	authURL  string

	apiClient      *http.Client
	downloadClient *http.Client

	tokenMu  sync.Mutex
	token    string
	tokenExp time.Time

	maxRetries int
}

type Config struct {
	Username       string
	Password       string
	AuthURL        string
	BaseURL        string
	MaxRetries     int
	RequestTimeout time.Duration
}

func New(cfg Config) *Client {
	inner := &czds.Client{
		Username: cfg.Username,
		Password: cfg.Password,
		AuthURL:  cfg.AuthURL,
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 5
	}

	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}

	return &Client{
		inner:      inner,
		maxRetries: maxRetries,
		username:   cfg.Username,
		password:   cfg.Password,
		authURL:    cfg.AuthURL,
		// apiClient bounds the short auth/HEAD round trips. downloadClient
		// deliberately carries no deadline of its own: a multi-gigabyte
		// zone transfer is bounded by the inactivity timeout instead,
		// not by how long the whole transfer takes.
		apiClient:      &http.Client{Timeout: requestTimeout},
		downloadClient: &http.Client{},
	}
}

// ensureAuthenticated guarantees a valid bearer session, collapsing
// concurrent callers into a single in-flight authentication.
func (c *Client) ensureAuthenticated(ctx context.Context) error {
	c.mu.Lock()
	if c.authenticated {
		c.mu.Unlock()
		return nil
	}
	if c.refreshing != nil {
		wait := c.refreshing
		c.mu.Unlock()
		select {
		case <-wait:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	refreshing := make(chan struct{})
	c.refreshing = refreshing
	c.mu.Unlock()

	err := c.inner.AuthenticateWithContext(ctx)

	c.mu.Lock()
	if err == nil {
		c.authenticated = true
	}
	c.refreshing = nil
	c.mu.Unlock()
	close(refreshing)

	if err != nil {
		return errs.FatalIO(err, "czds authentication failed")
	}
	return nil
}

// withRetry runs op, retrying transient failures with exponential backoff
// (base 2s, cap 5m, jitter) up to maxRetries, the policy spec.md §4.2
// names for the CZDS client specifically.
func (c *Client) withRetry(ctx context.Context, op func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 2 * time.Second
	policy.MaxInterval = 5 * time.Minute
	policy.MaxElapsedTime = 0

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := op()
		if err == nil {
			return nil
		}

		if attempt > c.maxRetries {
			return backoff.Permanent(err)
		}

		if !isTransient(err) {
			return backoff.Permanent(err)
		}

		logger.L.Warn().Err(err).Int("attempt", attempt).Msg("czds operation failed, retrying")
		return err
	}, backoff.WithContext(policy, ctx))
}

// isTransient classifies an error from the underlying library by the
// status code it reports in its message, since the library does not
// export a typed HTTP error: 401/403/404 are fatal per spec (auth
// rejected or the account is no longer authorized for the zone), anything
// else is treated as transient and retried.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, fatalCode := range []string{"401", "403", "404"} {
		if strings.Contains(msg, fatalCode) {
			return false
		}
	}
	return true
}

// ListZones returns the catalog of zone URLs authorized for this account.
func (c *Client) ListZones(ctx context.Context) ([]ZoneInfo, error) {
	if err := c.ensureAuthenticated(ctx); err != nil {
		return nil, err
	}

	var links []string
	err := c.withRetry(ctx, func() error {
		var innerErr error
		links, innerErr = c.inner.GetLinksWithContext(ctx)
		return innerErr
	})
	if err != nil {
		return nil, errs.TransientIO(err, "listing czds zones")
	}

	zones := make([]ZoneInfo, 0, len(links))
	for _, link := range links {
		zones = append(zones, ZoneInfo{Tld: tldFromURL(link), URL: link})
	}
	return zones, nil
}

func tldFromURL(url string) string {
	i := len(url) - 1
	for i >= 0 && url[i] != '/' {
		i--
	}
	name := url[i+1:]
	for _, suffix := range []string{".zone.gz", ".zone"} {
		if len(name) > len(suffix) && name[len(name)-len(suffix):] == suffix {
			return name[:len(name)-len(suffix)]
		}
	}
	return name
}

// Head retrieves per-zone download metadata without transferring the body.
func (c *Client) Head(ctx context.Context, url string) (HeadInfo, error) {
	if err := c.ensureAuthenticated(ctx); err != nil {
		return HeadInfo{}, err
	}

	info, err := c.inner.GetDownloadInfoWithContext(ctx, url)
	if err == nil {
		return HeadInfo{Size: info.ContentLength, LastModified: info.LastModified}, nil
	}

	if retryErr := c.withRetry(ctx, func() error {
		var innerErr error
		info, innerErr = c.inner.GetDownloadInfoWithContext(ctx, url)
		return innerErr
	}); retryErr != nil {
		return HeadInfo{}, errs.TransientIO(retryErr, "heading czds zone %s", url)
	}

	return HeadInfo{Size: info.ContentLength, LastModified: info.LastModified}, nil
}

// validators are the HTTP cache validators captured before a download
// starts, so a later attempt (resumed or retried) can detect that the
// remote zone changed underneath it instead of silently stitching
// together bytes from two different generations of the file.
type validators struct {
	etag         string
	lastModified string
}

func (v validators) changed(other validators) bool {
	if v.etag != "" && other.etag != "" && v.etag != other.etag {
		return true
	}
	if v.lastModified != "" && other.lastModified != "" && v.lastModified != other.lastModified {
		return true
	}
	return false
}

// Download fetches the zone body at url into destPath, resuming a partial
// file left over from a previous attempt via an HTTP Range request rather
// than restarting from zero. If the remote file's ETag or Last-Modified
// changed since the download started, the partial file is discarded and
// the whole transfer restarts. A transfer that receives no new bytes for
// inactivityTimeout is treated as a failed (retryable) attempt.
func (c *Client) Download(ctx context.Context, url string, destPath string) (int64, error) {
	if err := c.ensureAuthenticated(ctx); err != nil {
		return 0, err
	}

	token, err := c.downloadToken(ctx)
	if err != nil {
		return 0, err
	}

	want, err := c.fetchValidators(ctx, url, token)
	if err != nil {
		return 0, errs.TransientIO(err, "heading czds zone %s for download", url)
	}

	var n int64
	err = c.withRetry(ctx, func() error {
		written, changed, innerErr := c.downloadOnce(ctx, url, destPath, token, want)
		n = written
		if changed {
			logger.L.Warn().Str("url", url).Msg("czds zone changed mid-download, discarding partial file and restarting")
			if truncErr := os.Truncate(destPath, 0); truncErr != nil && !os.IsNotExist(truncErr) {
				return fmt.Errorf("czds: discarding stale partial download: %w", truncErr)
			}
			return fmt.Errorf("czds: remote zone %s changed during download", url)
		}
		return innerErr
	})
	if err != nil {
		return 0, errs.TransientIO(err, "downloading czds zone %s", url)
	}

	return n, nil
}

// downloadOnce runs a single grab transfer attempt. changed=true means the
// transfer completed but its validators no longer match want, so the bytes
// on disk are a mix of two zone generations and must be discarded.
func (c *Client) downloadOnce(ctx context.Context, url, destPath, token string, want validators) (int64, bool, error) {
	attemptCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	req, err := grab.NewRequest(destPath, url)
	if err != nil {
		return 0, false, fmt.Errorf("czds: building download request: %w", err)
	}
	req = req.WithContext(attemptCtx)
	req.HTTPRequest.Header.Set("Authorization", "Bearer "+token)

	client := &grab.Client{HTTPClient: c.downloadClient}
	resp := client.Do(req)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	lastBytes := resp.BytesComplete()
	inactiveSince := time.Now()

waitLoop:
	for {
		select {
		case <-resp.Done:
			break waitLoop
		case <-ticker.C:
			if current := resp.BytesComplete(); current > lastBytes {
				lastBytes = current
				inactiveSince = time.Now()
				continue
			}
			if time.Since(inactiveSince) >= inactivityTimeout {
				cancel()
				<-resp.Done
				break waitLoop
			}
		}
	}

	if err := resp.Err(); err != nil {
		return resp.BytesComplete(), false, err
	}

	if resp.HTTPResponse != nil {
		got := validators{
			etag:         resp.HTTPResponse.Header.Get("ETag"),
			lastModified: resp.HTTPResponse.Header.Get("Last-Modified"),
		}
		if want.changed(got) {
			return resp.BytesComplete(), true, nil
		}
	}

	return resp.BytesComplete(), false, nil
}

// fetchValidators issues a standalone HEAD request to capture the ETag and
// Last-Modified headers the download will be checked against, independent
// of inner.GetDownloadInfoWithContext (which does not surface them).
func (c *Client) fetchValidators(ctx context.Context, url, token string) (validators, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return validators{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.apiClient.Do(req)
	if err != nil {
		return validators{}, err
	}
	defer resp.Body.Close()

	return validators{
		etag:         resp.Header.Get("ETag"),
		lastModified: resp.Header.Get("Last-Modified"),
	}, nil
}

type authTokenResponse struct {
	AccessToken string `json:"accessToken"`
}

// downloadToken authenticates directly against the CZDS REST endpoint and
// caches the resulting bearer token, independent of inner's own session
// (which the library keeps private).
func (c *Client) downloadToken(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	if c.token != "" && time.Now().Before(c.tokenExp) {
		token := c.token
		c.tokenMu.Unlock()
		return token, nil
	}
	c.tokenMu.Unlock()

	payload, err := json.Marshal(map[string]string{
		"username": c.username,
		"password": c.password,
	})
	if err != nil {
		return "", fmt.Errorf("czds: encoding auth payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("czds: building auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.apiClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("czds: auth request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("czds: auth returned status %d", resp.StatusCode)
	}

	var parsed authTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("czds: decoding auth response: %w", err)
	}
	if parsed.AccessToken == "" {
		return "", fmt.Errorf("czds: auth response missing access token")
	}

	c.tokenMu.Lock()
	c.token = parsed.AccessToken
	c.tokenExp = time.Now().Add(tokenTTL)
	c.tokenMu.Unlock()

	return parsed.AccessToken, nil
}

// URLForTLD resolves a TLD to its catalog URL, failing fatally (per spec's
// 404-is-fatal rule) if the account is no longer authorized for it.
func URLForTLD(zones []ZoneInfo, tld string) (string, error) {
	for _, z := range zones {
		if z.Tld == tld {
			return z.URL, nil
		}
	}
	return "", fmt.Errorf("czds: tld %q not found in authorized catalog", tld)
}
