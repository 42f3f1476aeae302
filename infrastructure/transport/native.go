package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
)

// HostManifest is a native-messaging host manifest
type HostManifest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Path        string   `json:"path"`
	Type        string   `json:"type"`
	Origins     []string `json:"allowed_origins"`
}

// ResolveHost finds the executable registered for the native-messaging host
// name by reading <name>.json from the first directory that has it
func ResolveHost(name string, dirs []string) (string, error) {
	for _, dir := range dirs {
		path := filepath.Join(dir, name+".json")
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return "", fmt.Errorf("failed to read manifest %s: %w", path, err)
		}

		var m HostManifest
		if err := json.Unmarshal(data, &m); err != nil {
			return "", fmt.Errorf("failed to parse manifest %s: %w", path, err)
		}
		if m.Name != "" && m.Name != name {
			return "", fmt.Errorf("manifest %s registers %q, not %q", path, m.Name, name)
		}
		if m.Path == "" {
			return "", fmt.Errorf("manifest %s has no path", path)
		}
		if m.Type != "" && m.Type != "stdio" {
			return "", fmt.Errorf("manifest %s: unsupported type %q", path, m.Type)
		}

		exe := m.Path
		if !filepath.IsAbs(exe) {
			exe = filepath.Join(dir, exe)
		}
		return exe, nil
	}
	return "", fmt.Errorf("native messaging host %s not found in %v", name, dirs)
}

// NativeConnector spawns the native-messaging host and talks to it over stdio
type NativeConnector struct {
	hostName     string
	manifestDirs []string
	logger       *logrus.Logger
}

// NewNativeConnector - creates new native-messaging connector
func NewNativeConnector(hostName string, manifestDirs []string, logger *logrus.Logger) *NativeConnector {
	return &NativeConnector{hostName: hostName, manifestDirs: manifestDirs, logger: logger}
}

func (n *NativeConnector) Name() string {
	return "native"
}

func (n *NativeConnector) Connect(ctx context.Context) (Link, error) {
	exe, err := ResolveHost(n.hostName, n.manifestDirs)
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(exe)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open host stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open host stdout: %w", err)
	}
	stderr := n.logger.WriterLevel(logrus.DebugLevel)
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		stderr.Close()
		return nil, fmt.Errorf("failed to start native host %s: %w", exe, err)
	}
	n.logger.WithFields(logrus.Fields{"host": n.hostName, "pid": cmd.Process.Pid}).Info("Native host started")

	return &nativeLink{cmd: cmd, stdin: stdin, stdout: stdout, stderr: stderr}, nil
}

type nativeLink struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr io.Closer
	once   sync.Once
	err    error
}

func (l *nativeLink) Receive(ctx context.Context) ([]byte, error) {
	return ReadFrame(l.stdout)
}

func (l *nativeLink) Send(ctx context.Context, msg []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return WriteFrame(l.stdin, msg)
}

// Close stops the host process and reaps it
func (l *nativeLink) Close() error {
	l.once.Do(func() {
		_ = l.stdin.Close()
		if l.cmd.Process != nil {
			_ = l.cmd.Process.Kill()
		}
		if err := l.cmd.Wait(); err != nil {
			var exitErr *exec.ExitError
			if !errors.As(err, &exitErr) {
				l.err = err
			}
		}
		_ = l.stderr.Close()
	})
	return l.err
}
