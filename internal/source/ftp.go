package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/jlaffaye/ftp"

	"github.com/moderoemello/korona-ftp-csv-sync/internal/config"
)

// FTP pulls export files from the retailer's FTP drop directory. One
// connection serves a whole run; processing is sequential so the control
// channel is never used concurrently.
type FTP struct {
	conn   *ftp.ServerConn
	logger *slog.Logger
}

// DialFTP connects, logs in, and changes into the remote drop directory.
func DialFTP(ctx context.Context, cfg config.FTPConfig, logger *slog.Logger) (*FTP, error) {
	if logger == nil {
		logger = slog.Default()
	}

	addr := cfg.Host
	if !strings.Contains(addr, ":") {
		addr += ":21"
	}

	conn, err := ftp.Dial(addr,
		ftp.DialWithContext(ctx),
		ftp.DialWithTimeout(cfg.Timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("dial ftp %s: %w", addr, err)
	}
	if err := conn.Login(cfg.User, cfg.Password); err != nil {
		_ = conn.Quit()
		return nil, fmt.Errorf("ftp login: %w", err)
	}
	if cfg.RemoteDir != "" {
		if err := conn.ChangeDir(cfg.RemoteDir); err != nil {
			_ = conn.Quit()
			return nil, fmt.Errorf("ftp cd %s: %w", cfg.RemoteDir, err)
		}
	}
	logger.Info("source.ftp.connected", "addr", addr, "dir", cfg.RemoteDir)
	return &FTP{conn: conn, logger: logger}, nil
}

func (s *FTP) List(_ context.Context) ([]string, error) {
	entries, err := s.conn.List("")
	if err != nil {
		return nil, fmt.Errorf("ftp list: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.Type != ftp.EntryTypeFile {
			continue
		}
		names = append(names, e.Name)
	}
	s.logger.Info("source.ftp.listed", "count", len(names))
	return names, nil
}

func (s *FTP) Fetch(_ context.Context, name string) (io.ReadCloser, error) {
	resp, err := s.conn.Retr(name)
	if err != nil {
		return nil, fmt.Errorf("ftp retr %s: %w", name, err)
	}
	return resp, nil
}

// Close quits the control connection.
func (s *FTP) Close() error {
	return s.conn.Quit()
}
