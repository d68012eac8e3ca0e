package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"sdportal/internal/api"
	"sdportal/internal/task"
	"sdportal/internal/transport"
)

// BalanceSource is the relay call used to verify access.
type BalanceSource interface {
	WalletBalance(ctx context.Context) (*api.WalletBalance, error)
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckPoseAssets verifies that every image the catalog offers exists under
// dir.
func CheckPoseAssets(dir string, catalog *task.PoseCatalog) Result {
	const name = "Pose images"

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not a directory)", dir)}
	}

	total, missing := 0, 0
	first := ""
	for _, category := range catalog.Categories() {
		for i := range category.Count {
			total++
			rel := task.AssetPath(task.Pose{Category: category.Name, Index: i})
			if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(rel))); err != nil {
				if first == "" {
					first = rel
				}
				missing++
			}
		}
	}
	if missing > 0 {
		return Result{Name: name, Detail: fmt.Sprintf("%d of %d missing (first: %s)", missing, total, first)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d images present", total)}
}

// CheckRelay performs one wallet balance request. Failures are summarized by
// their transport kind; there are no retries.
func CheckRelay(ctx context.Context, relay BalanceSource) Result {
	const name = "Relay"

	balance, err := relay.WalletBalance(ctx)
	if err != nil {
		return Result{Name: name, Detail: summarizeRelayError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("reachable (wallet %s)", balance.Address)}
}

func summarizeRelayError(err error) string {
	switch transport.KindOf(err) {
	case transport.KindForbidden:
		return "access denied (403)"
	case transport.KindServer:
		return "relay internal error (500)"
	case transport.KindNotFound:
		return "endpoint not found (404); check service.base_url"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "request timed out"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "request timed out"
	}
	return err.Error()
}
