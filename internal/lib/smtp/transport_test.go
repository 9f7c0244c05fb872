package smtp

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/portrait-studio/internal/config"
)

func TestTransport_From(t *testing.T) {
	tr := NewTransport(config.SMTP{SMTPUser: "noreply@studio.test"})
	assert.Equal(t, "noreply@studio.test", tr.From())
}

func TestTransport_ConnectRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	host, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	require.NoError(t, ln.Close())

	_, err = NewTransport(config.SMTP{SMTPHost: host, SMTPPort: port}).Connect()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp.Connect")
}

func TestTransport_ConnectWithoutStartTLS(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 512)
		_, _ = conn.Write([]byte("220 test ESMTP\r\n"))
		_, _ = conn.Read(buf)
		_, _ = conn.Write([]byte("250 test\r\n"))
		_, _ = conn.Read(buf)
	}()

	host, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	_, err = NewTransport(config.SMTP{SMTPHost: host, SMTPPort: port}).Connect()
	assert.ErrorIs(t, err, ErrNoStartTLS)
}
