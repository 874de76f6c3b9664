package modem

import (
	"context"
	"fmt"
	"strings"
	"time"

	"arborsense.dev/field/cellgw/at"
)

const (
	// httpDataTimeoutMs is the module-side window for receiving payload
	// bytes after a +HTTPDATA announcement, in milliseconds on the wire.
	httpDataTimeoutMs = 10000
	// payloadSettle gives the module time to absorb payload bytes before
	// the action command is issued.
	payloadSettle = 500 * time.Millisecond
)

// HTTPResponse is the outcome of one HTTP transaction through the
// command-channel tunnel.
type HTTPResponse struct {
	StatusCode    int
	StatusText    string
	Body          string
	ContentLength int
	Success       bool
	Duration      time.Duration
}

// SendData POSTs body to the configured endpoint through the HTTP-over-AT
// tunnel. The HTTP session is established lazily on first use and reused
// across calls while connected.
//
// The returned error covers state and session failures (not connected,
// setup failed); protocol-level failures such as a non-2xx status are
// reported in the response with Success false and the raw status text.
func (m *Modem) SendData(ctx context.Context, body []byte) (HTTPResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return HTTPResponse{}, ErrAlreadyClosed
	}
	if !m.is(StateConnected) {
		return HTTPResponse{}, ErrNotConnected
	}

	m.log.Info("sending data", "bytes", len(body))

	if err := m.ensureHTTPService(ctx); err != nil {
		return HTTPResponse{StatusText: "HTTP service unavailable"}, err
	}

	resp := m.sendRequest(ctx, body, false)
	if !resp.Success {
		m.log.Error("data send failed", "status", resp.StatusText)
	}
	return resp, nil
}

// SendLines uploads a line-oriented payload in chunkSize-bounded slices.
// Lines are reassembled into one logical byte stream (each line followed
// by a newline) so the receiver sees the original file regardless of the
// chunking. Bounding the chunk size keeps memory flat on small targets.
//
// The operation fails fast: the first failed chunk aborts the rest. The
// returned count is the number of chunks successfully sent; on success it
// is the total number of chunks. A chunkSize of zero selects the
// configured default.
func (m *Modem) SendLines(ctx context.Context, lines []string, chunkSize int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrAlreadyClosed
	}
	if !m.is(StateConnected) {
		return 0, ErrNotConnected
	}
	if len(lines) == 0 {
		return 0, fmt.Errorf("no lines to send")
	}
	if chunkSize <= 0 {
		chunkSize = m.config.ChunkSize
	}

	if err := m.ensureHTTPService(ctx); err != nil {
		return 0, err
	}

	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line)
		b.WriteString("\n")
	}
	data := b.String()

	total := (len(data) + chunkSize - 1) / chunkSize
	m.log.Info("sending in chunks", "bytes", len(data), "chunks", total, "chunk_size", chunkSize)

	sent := 0
	for offset := 0; offset < len(data); offset += chunkSize {
		end := offset + chunkSize
		if end > len(data) {
			end = len(data)
		}
		more := end < len(data)

		m.log.Debug("sending chunk", "chunk", sent+1, "bytes", end-offset, "more", more)
		resp := m.sendRequest(ctx, []byte(data[offset:end]), more)
		if !resp.Success {
			return sent, fmt.Errorf("chunk %d of %d failed: %s", sent+1, total, resp.StatusText)
		}
		sent++
	}

	m.log.Info("all chunks sent", "chunks", sent)
	return sent, nil
}

// ensureHTTPService configures the module's HTTP subsystem once per
// connection: init, target URL, content type and an optional user agent.
// A failure at any required step tears the session down before reporting,
// so no half-configured session is ever left behind.
func (m *Modem) ensureHTTPService(ctx context.Context) error {
	if m.httpActive {
		return nil
	}
	if m.config.EndpointURL == "" {
		return ErrNoEndpoint
	}

	m.log.Info("setting up HTTP service", "url", m.config.EndpointURL)

	// Clear any leftover session from a previous life of the module.
	m.terminateHTTPService(ctx)

	if out := m.command(ctx, at.CmdHTTPInit, at.OK, 1, 0); !out.Matched() {
		return fmt.Errorf("HTTP init: %s", out.Kind)
	}

	urlCmd := fmt.Sprintf(`+HTTPPARA="URL","%s"`, m.config.EndpointURL)
	if out := m.command(ctx, urlCmd, at.OK, 1, 0); !out.Matched() {
		m.command(ctx, at.CmdHTTPTerm, at.OK, 1, 0)
		return fmt.Errorf("set URL: %s", out.Kind)
	}

	contentCmd := fmt.Sprintf(`+HTTPPARA="CONTENT","%s"`, m.config.ContentType)
	if out := m.command(ctx, contentCmd, at.OK, 1, 0); !out.Matched() {
		m.command(ctx, at.CmdHTTPTerm, at.OK, 1, 0)
		return fmt.Errorf("set content type: %s", out.Kind)
	}

	if m.config.UserAgent != "" {
		uaCmd := fmt.Sprintf(`+HTTPPARA="USERDATA","%s"`, m.config.UserAgent)
		if out := m.command(ctx, uaCmd, at.OK, 1, 0); !out.Matched() {
			m.log.Warn("user agent rejected", "outcome", out.Kind.String())
		}
	}

	m.httpActive = true
	m.log.Info("HTTP service ready")
	return nil
}

// terminateHTTPService closes the module's HTTP session if one is open.
// Caller holds the operation guard.
func (m *Modem) terminateHTTPService(ctx context.Context) {
	if !m.httpActive {
		return
	}
	m.log.Debug("terminating HTTP service")
	m.command(ctx, at.CmdHTTPTerm, at.OK, 1, 0)
	m.httpActive = false
}

// sendRequest performs one POST: announce the payload length, wait for
// the DOWNLOAD prompt, write the raw bytes (payload bytes bypass command
// framing), execute the action and parse status and length, then fetch
// the body when one is advertised.
//
// Every attempt increments the sent counter; only 2xx responses touch
// the success and byte counters, preserving a meaningful success ratio.
func (m *Modem) sendRequest(ctx context.Context, body []byte, moreData bool) HTTPResponse {
	start := time.Now()
	resp := HTTPResponse{}
	m.stats.requestSent()

	fail := func(text string) HTTPResponse {
		resp.StatusText = text
		resp.Duration = time.Since(start)
		m.stats.requestFailed(text)
		return resp
	}

	dataCmd := fmt.Sprintf("+HTTPDATA=%d,%d", len(body), httpDataTimeoutMs)
	if out := m.command(ctx, dataCmd, at.Download, 1, 0); !out.Matched() {
		return fail("failed to initiate data transfer")
	}

	if err := m.writeRaw(body); err != nil {
		return fail(err.Error())
	}
	sleepCtx(ctx, payloadSettle)

	out := m.command(ctx, at.CmdHTTPPost, at.RespHTTPAction, 1, m.config.HTTPTimeout)
	if !out.Matched() {
		return fail("HTTP POST failed")
	}

	_, status, length, ok := at.ParseHTTPAction(out.Raw)
	if !ok {
		return fail("failed to parse HTTP action response")
	}
	resp.StatusCode = status
	resp.ContentLength = length

	if length > 0 {
		if rout := m.command(ctx, at.CmdHTTPRead, at.OK, 1, 0); rout.Matched() {
			resp.Body = httpReadBody(rout.Raw)
		}
	}

	resp.Success = status >= 200 && status < 300
	resp.Duration = time.Since(start)
	if resp.Success {
		resp.StatusText = "Success"
		m.stats.requestSucceeded(len(body), length)
		if moreData {
			m.log.Debug("chunk accepted, more to follow")
		}
	} else {
		resp.StatusText = fmt.Sprintf("HTTP error %d", status)
		m.stats.requestFailed(resp.StatusText)
	}
	return resp
}

// httpReadBody strips +HTTPREAD framing lines and terminal tokens from a
// read exchange, leaving the response body text.
func httpReadBody(raw string) string {
	var body []string
	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimRight(line, "\r")
		if trimmed == "" || trimmed == at.OK {
			continue
		}
		if strings.HasPrefix(trimmed, at.RespHTTPRead) {
			continue
		}
		body = append(body, trimmed)
	}
	return strings.Join(body, "\n")
}

// TestConnectivity issues a ping through the module to verify the data
// path end to end. Best-effort diagnostic; failures are not recorded.
func (m *Modem) TestConnectivity(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed || !m.is(StateConnected) {
		return false
	}
	m.log.Debug("testing network connectivity")
	return m.command(ctx, `+CIPPING="8.8.8.8"`, at.RespPing, 1, m.config.HTTPTimeout).Matched()
}
