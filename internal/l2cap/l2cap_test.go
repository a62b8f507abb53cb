package l2cap_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hmallat/a2dp-source/internal/bdaddr"
	"github.com/hmallat/a2dp-source/internal/l2cap"
	"github.com/hmallat/a2dp-source/internal/l2cap/l2captest"
)

func mustAddr(t *testing.T, s string) bdaddr.Addr {
	t.Helper()
	a, err := bdaddr.Parse(s)
	require.NoError(t, err)
	return a
}

func TestDialAcceptRoundTrip(t *testing.T) {
	local := mustAddr(t, "AA:BB:CC:DD:EE:FF")
	remote := mustAddr(t, "11:22:33:44:55:66")

	server, err := l2captest.New(local)
	require.NoError(t, err)
	defer server.Close()

	client, err := l2captest.New(remote)
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	acceptCh := make(chan *l2cap.Conn, 1)
	acceptErrCh := make(chan error, 1)
	go func() {
		conn, err := server.Accept(ctx)
		if err != nil {
			acceptErrCh <- err
			return
		}
		acceptCh <- conn
	}()

	dialCtx := l2captest.WithDialTarget(ctx, server.Addr().String())
	dialed, err := client.Dial(dialCtx, local, l2cap.PSM, l2cap.SecurityMedium)
	require.NoError(t, err)
	defer dialed.Close()

	select {
	case err := <-acceptErrCh:
		require.NoError(t, err)
	case accepted := <-acceptCh:
		defer accepted.Close()
		assert.Equal(t, remote, accepted.RemoteAddr())
		assert.Equal(t, uint16(l2captest.DefaultMTU), accepted.LocalMTU())
		assert.Equal(t, uint16(l2captest.DefaultMTU), accepted.RemoteMTU())
	case <-ctx.Done():
		t.Fatal("timed out waiting for Accept")
	}
}

func TestConnReadWrite(t *testing.T) {
	local := mustAddr(t, "AA:BB:CC:DD:EE:FF")
	remote := mustAddr(t, "11:22:33:44:55:66")

	server, err := l2captest.New(local)
	require.NoError(t, err)
	defer server.Close()
	client, err := l2captest.New(remote)
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	acceptCh := make(chan *l2cap.Conn, 1)
	go func() {
		conn, err := server.Accept(ctx)
		if err == nil {
			acceptCh <- conn
		}
	}()

	dialCtx := l2captest.WithDialTarget(ctx, server.Addr().String())
	dialed, err := client.Dial(dialCtx, local, l2cap.PSM, l2cap.SecurityMedium)
	require.NoError(t, err)
	defer dialed.Close()

	accepted := <-acceptCh
	defer accepted.Close()

	msg := []byte("hello")
	_, err = dialed.Write(msg)
	require.NoError(t, err)

	buf := make([]byte, len(msg))
	_, err = readFull(accepted, buf)
	require.NoError(t, err)
	assert.Equal(t, msg, buf)
}

func readFull(c *l2cap.Conn, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		k, err := c.Read(buf[n:])
		n += k
		if err != nil {
			return n, err
		}
	}
	return n, nil
}
