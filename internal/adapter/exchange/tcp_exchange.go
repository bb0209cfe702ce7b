// Package exchange connects to exchange feeds that push newline-delimited
// quotes over a raw TCP socket.
package exchange

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"marketsync/internal/adapter/feed"
	"marketsync/internal/domain/model"
	"marketsync/internal/domain/port"
)

const dialTimeout = 5 * time.Second

// TCPTransport dials tcp://host:port targets, sends one SUBSCRIBE line with
// the target query and then only reads. Lines are either feed JSON messages
// or "SYMBOL,price[,percentChange]" CSV, which is converted to JSON.
type TCPTransport struct {
	log   *zap.Logger
	clock func() time.Time
}

func NewTCPTransport(log *zap.Logger) *TCPTransport {
	if log == nil {
		log = zap.NewNop()
	}
	return &TCPTransport{log: log, clock: time.Now}
}

func (t *TCPTransport) Name() string { return "tcp" }

func (t *TCPTransport) Dial(ctx context.Context, target port.Target) (port.FrameStream, error) {
	u, err := url.Parse(target.URL)
	if err != nil {
		return nil, fmt.Errorf("parse tcp target: %w", err)
	}

	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", u.Host)
	if err != nil {
		return nil, err
	}

	if _, err := fmt.Fprintf(conn, "SUBSCRIBE %s\n", u.RawQuery); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send subscribe: %w", err)
	}
	t.log.Debug("tcp feed connected", zap.String("addr", u.Host))

	reader := bufio.NewReader(conn)
	return feed.NewPumpStream(func() ([]byte, error) {
		for {
			line, err := reader.ReadBytes('\n')
			if err != nil {
				return nil, fmt.Errorf("read error: %w", err)
			}
			line = bytes.TrimSpace(line)
			if len(line) == 0 {
				continue
			}
			return t.normalize(line), nil
		}
	}, conn.Close), nil
}

// normalize passes JSON through and converts CSV lines. Anything else is
// returned as is so the connection counts it as malformed.
func (t *TCPTransport) normalize(line []byte) []byte {
	if line[0] == '{' {
		return line
	}
	msg, ok := parseCSV(string(line), t.clock())
	if !ok {
		return line
	}
	data, err := msg.MarshalJSON()
	if err != nil {
		return line
	}
	return data
}

func parseCSV(line string, now time.Time) (model.FeedMessage, bool) {
	parts := strings.Split(line, ",")
	if len(parts) != 2 && len(parts) != 3 {
		return model.FeedMessage{}, false
	}

	symbol := strings.TrimSpace(parts[0])
	price, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil || symbol == "" {
		return model.FeedMessage{}, false
	}

	var pct float64
	if len(parts) == 3 {
		if pct, err = strconv.ParseFloat(strings.TrimSpace(parts[2]), 64); err != nil {
			return model.FeedMessage{}, false
		}
	}
	return model.NewPriceMessage(symbol, price, pct, now), true
}
