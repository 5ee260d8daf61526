package provision

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/pertamax98/bot-vpn/types"
)

// SSHProvisioner executes provisioning scripts on the target VPS as root.
// A hard timeout bounds the whole dial+exec; a hung host must not keep the
// buyer's money in limbo.
type SSHProvisioner struct {
	sshUser string
	timeout time.Duration
}

func NewSSHProvisioner(sshUser string, timeout time.Duration) *SSHProvisioner {
	if sshUser == "" {
		sshUser = "root"
	}
	if timeout <= 0 {
		timeout = 35 * time.Second
	}
	return &SSHProvisioner{sshUser: sshUser, timeout: timeout}
}

func (p *SSHProvisioner) Provision(ctx context.Context, req Request) (*types.AccountDetails, error) {
	cmd, err := buildCommand(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	output, err := p.exec(ctx, req.Server, cmd)
	if err != nil {
		return nil, err
	}

	m, err := parseResult(output)
	if err != nil {
		return nil, err
	}

	details := &types.AccountDetails{
		Username:   m["username"],
		Password:   req.Password,
		UUID:       m["uuid"],
		Domain:     m["domain"],
		IP:         m["ip"],
		City:       m["city"],
		PublicKey:  m["public_key"],
		Expiration: m["expiration"],
	}
	if details.Domain == "" {
		details.Domain = req.Server.Domain
	}
	return details, nil
}

func (p *SSHProvisioner) exec(ctx context.Context, server types.Server, cmd string) (string, error) {
	addr := net.JoinHostPort(server.Domain, "22")

	cfg := &ssh.ClientConfig{
		User:            p.sshUser,
		Auth:            []ssh.AuthMethod{ssh.Password(server.AuthSecret)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         10 * time.Second,
	}

	dialer := net.Dialer{Timeout: cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return "", fmt.Errorf("%w: dial %s: %v", ErrProvisioningFailed, addr, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		conn.Close()
		return "", fmt.Errorf("%w: handshake %s: %v", ErrProvisioningFailed, addr, err)
	}
	client := ssh.NewClient(sshConn, chans, reqs)
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return "", fmt.Errorf("%w: session: %v", ErrProvisioningFailed, err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() { done <- session.Run(cmd) }()

	select {
	case <-ctx.Done():
		// Kill the channel so the goroutine unblocks; the result no longer
		// matters.
		session.Close()
		return "", fmt.Errorf("%w: timeout on %s", ErrProvisioningFailed, server.Domain)
	case err := <-done:
		if err != nil {
			reason := strings.TrimSpace(stderr.String())
			if reason == "" {
				reason = err.Error()
			}
			log.Printf("Provisioning failed on %s: %s", server.Domain, reason)
			return "", fmt.Errorf("%w: %s", ErrProvisioningFailed, remoteReason(reason))
		}
	}
	return stdout.String(), nil
}

// remoteReason maps the script's sentinel stderr words onto readable
// failure reasons; anything else passes through as-is.
func remoteReason(stderr string) string {
	switch {
	case strings.Contains(stderr, "DUPLICATE"):
		return "username already exists on server"
	case strings.Contains(stderr, "NOUSER"):
		return "account not found on server"
	default:
		return stderr
	}
}
