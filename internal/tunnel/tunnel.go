// Package tunnel provides the encrypted SSH transport the database
// connection is carried over. It exposes a ContextDialer the MySQL driver
// registers, so pooled connections are forwarded streams rather than direct
// TCP dials.
package tunnel

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/aficiomaquinas/mautic-fix-db-ai/internal/config"
	"github.com/aficiomaquinas/mautic-fix-db-ai/internal/errs"
	"github.com/aficiomaquinas/mautic-fix-db-ai/internal/logger"
)

const dialTimeout = 15 * time.Second

// Tunnel wraps an established SSH client connection. It is acquired once at
// startup and must be closed exactly once at the end of the run.
type Tunnel struct {
	client *ssh.Client
	log    *logger.Logger
}

// Open reads the private key, authenticates against the SSH host, and
// returns a connected Tunnel. Any failure here is a transport failure: the
// run cannot proceed without the forwarding channel.
func Open(cfg config.SSH, log *logger.Logger) (*Tunnel, error) {
	key, err := os.ReadFile(cfg.PrivateKeyPath)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindTransportFailed,
			fmt.Sprintf("cannot read private key %s", cfg.PrivateKeyPath), err)
	}

	var signer ssh.Signer
	if cfg.Passphrase != "" {
		signer, err = ssh.ParsePrivateKeyWithPassphrase(key, []byte(cfg.Passphrase))
	} else {
		signer, err = ssh.ParsePrivateKey(key)
	}
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindTransportFailed, "cannot parse private key", err)
	}

	clientCfg := &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // TODO: verify against known_hosts
		Timeout:         dialTimeout,
	}

	addr := net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port))
	log.Debugf("opening ssh tunnel to %s as %s", addr, cfg.User)

	client, err := ssh.Dial("tcp", addr, clientCfg)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindTransportFailed,
			fmt.Sprintf("ssh dial %s failed", addr), err)
	}

	return &Tunnel{client: client, log: log}, nil
}

// DialContext forwards a TCP stream to addr through the SSH connection.
// It satisfies the MySQL driver's dialer contract.
func (t *Tunnel) DialContext(ctx context.Context, addr string) (net.Conn, error) {
	t.log.Debugf("forwarding stream to %s", addr)
	conn, err := t.client.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindTransportFailed,
			fmt.Sprintf("forward to %s failed", addr), err)
	}
	return conn, nil
}

// Close tears down the SSH connection and every stream carried over it.
func (t *Tunnel) Close() error {
	t.log.Debug("closing ssh tunnel")
	return t.client.Close()
}
