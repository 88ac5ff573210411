package notify

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/bytedance/sonic"

	"github.com/moyoez/batchshare/tool"
	"github.com/moyoez/batchshare/types"
)

// NotifyWriteChunkSize is the chunk size when writing payload to Unix socket (avoid large single write).
const NotifyWriteChunkSize = 32 * 1024 // 32KB

// MaxNotifyFiles is the maximum number of file names included in a batch payload.
const MaxNotifyFiles = 20

// UnixSocketTimeout is the timeout for Unix socket operations
var UnixSocketTimeout = 3 * time.Second

// Hub receives every notification, e.g. the websocket hub of the HTTP API.
type Hub interface {
	Broadcast(notification *types.Notification)
}

// Notifier fans batch events out to the websocket hub and, if configured, a Unix socket.
type Notifier struct {
	hub        Hub
	socketPath string
}

// New returns a Notifier. hub may be nil; an empty socketPath disables the socket.
func New(hub Hub, socketPath string) *Notifier {
	return &Notifier{hub: hub, socketPath: socketPath}
}

// BatchCreated announces a new batch with its share link.
func (n *Notifier) BatchCreated(batch *types.Batch, link string) {
	names := make([]string, 0, min(len(batch.Files), MaxNotifyFiles))
	for _, f := range batch.Files {
		if len(names) >= MaxNotifyFiles {
			break
		}
		names = append(names, f.DisplayName)
	}
	n.Send(&types.Notification{
		Type:    types.NotifyTypeBatchCreated,
		Title:   "Batch Created",
		Message: fmt.Sprintf("Batch %s with %d files", batch.BatchID, len(batch.Files)),
		Data: map[string]any{
			"batchId":    batch.BatchID,
			"owner":      batch.Owner,
			"totalFiles": len(batch.Files),
			"totalSize":  batch.TotalSize(),
			"fileNames":  names,
			"link":       link,
		},
	})
}

// BatchDeleted announces that a batch was deactivated.
func (n *Notifier) BatchDeleted(batchId string, by int64) {
	n.Send(&types.Notification{
		Type:    types.NotifyTypeBatchDeleted,
		Title:   "Batch Deleted",
		Message: fmt.Sprintf("Batch %s deleted", batchId),
		Data: map[string]any{
			"batchId": batchId,
			"by":      by,
		},
	})
}

// Send delivers to all sinks. Socket errors are logged, never returned: notifications are
// best effort and must not fail a chat command.
func (n *Notifier) Send(notification *types.Notification) {
	if n == nil || notification == nil {
		return
	}
	if n.hub != nil {
		n.hub.Broadcast(notification)
	}
	if n.socketPath == "" {
		return
	}
	if err := SendNotification(notification, n.socketPath); err != nil {
		tool.DefaultLogger.Debugf("[Notify] Failed to send %s notification: %v", notification.Type, err)
	}
}

// SendNotification writes one length-prefixed JSON notification to the Unix socket and
// checks the server's reply for an error field.
func SendNotification(notification *types.Notification, socketPath string) error {
	if _, err := os.Stat(socketPath); os.IsNotExist(err) {
		return fmt.Errorf("unix socket not found: %s", socketPath)
	}

	payload, err := sonic.Marshal(notification)
	if err != nil {
		return fmt.Errorf("failed to serialize notification data: %v", err)
	}
	if len(payload) > NotifyWriteChunkSize {
		return fmt.Errorf("notification payload too large: %d bytes (max %d)", len(payload), NotifyWriteChunkSize)
	}

	conn, err := net.DialTimeout("unix", socketPath, UnixSocketTimeout)
	if err != nil {
		return fmt.Errorf("failed to connect to Unix socket %s: %v", socketPath, err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			tool.DefaultLogger.Errorf("Failed to close Unix socket connection: %v", err)
		}
	}()

	if err := conn.SetDeadline(time.Now().Add(UnixSocketTimeout)); err != nil {
		tool.DefaultLogger.Errorf("Failed to set deadline: %v", err)
	}

	// 4 bytes little-endian length, then the payload
	lengthBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(lengthBuf, uint32(len(payload)))
	if _, err := conn.Write(lengthBuf); err != nil {
		return fmt.Errorf("failed to write length to Unix socket: %v", err)
	}
	if _, err := conn.Write(payload); err != nil {
		return fmt.Errorf("failed to write payload to Unix socket: %v", err)
	}

	buf := make([]byte, 4096)
	nr, err := conn.Read(buf)
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read response from Unix socket: %v", err)
	}
	if nr > 0 {
		var response map[string]any
		if err := sonic.Unmarshal(buf[:nr], &response); err != nil {
			tool.DefaultLogger.Debugf("Unix socket response (raw): %s", string(buf[:nr]))
		} else if errMsg, ok := response["error"].(string); ok && errMsg != "" {
			return fmt.Errorf("server returned error: %s", errMsg)
		}
	}

	tool.DefaultLogger.Infof("[UnixSocket] Notification sent: %s - %s", notification.Type, notification.Title)
	return nil
}
