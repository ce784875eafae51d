package cras

import (
	"context"
	"fmt"

	"github.com/jfreymuth/cras/proto"
)

// DebugInfo is the state of the server's audio thread.
type DebugInfo struct {
	Devices []proto.DevDebugInfo
	Streams []proto.StreamDebugInfo
	// Events holds the audio thread event log, oldest first.
	Events []proto.AudioThreadEvent
}

// AudioDebugInfo asks the server to dump its audio thread state and reads
// the result from the server state. The next message from the server must
// be the answer.
func (c *Client) AudioDebugInfo() (*DebugInfo, error) {
	return c.AudioDebugInfoContext(context.Background(), PollExecutor{})
}

// AudioDebugInfoContext is AudioDebugInfo waiting with ex.
func (c *Client) AudioDebugInfoContext(ctx context.Context, ex Executor) (*DebugInfo, error) {
	if err := c.send("dump audio thread", &proto.DumpAudioThread{}); err != nil {
		return nil, err
	}
	res, err := waitForMessage(ctx, ex, c.conn)
	if err != nil {
		return nil, err
	}
	if _, ok := res.(debugInfoReady); !ok {
		discard(res)
		return nil, ErrMessageType
	}
	d, err := c.state.debugInfo()
	if err != nil {
		return nil, fmt.Errorf("cras: reading debug info: %w", err)
	}
	return &DebugInfo{
		Devices: d.Devs[:min(d.NumDevs, proto.MaxDebugDevs)],
		Streams: d.Streams[:min(d.NumStreams, proto.MaxDebugStreams)],
		Events:  d.Log.Ordered(),
	}, nil
}
