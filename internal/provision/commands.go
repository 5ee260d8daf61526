package provision

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const resultMarker = "###RESULT###"

// buildCommand renders the remote script for one provisioning request. The
// script mutates the VPN daemon's config files the same way the standalone
// add/renew scripts on the VPS do, then prints a single JSON object after
// the marker line so the output survives whatever the daemon reloads echo.
func buildCommand(req Request) (string, error) {
	expDate := time.Now().AddDate(0, 0, req.DurationDays).Format("2006-01-02")
	if req.Trial {
		minutes := req.TrialMinutes
		if minutes <= 0 {
			minutes = 60
		}
		expDate = time.Now().Add(time.Duration(minutes) * time.Minute).Format("2006-01-02 15:04")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "user=%q\n", req.Username)
	fmt.Fprintf(&sb, "exp_date=%q\n", expDate)
	fmt.Fprintf(&sb, "quota=%d\n", req.Server.QuotaGB)
	fmt.Fprintf(&sb, "ip_limit=%d\n", req.Server.IPLimit)
	sb.WriteString(`domain=$(cat /etc/xray/domain 2>/dev/null || hostname -f)
city=$(cat /etc/xray/city 2>/dev/null || echo "Unknown")
pubkey=$(cat /etc/slowdns/server.pub 2>/dev/null || echo "")
ip=$(curl -s ifconfig.me 2>/dev/null || hostname -I | awk '{print $1}')
`)

	switch req.Protocol {
	case "ssh":
		if err := appendSSHBody(&sb, req); err != nil {
			return "", err
		}
	case "vmess", "vless", "trojan", "shadowsocks":
		appendXrayBody(&sb, req)
	default:
		return "", fmt.Errorf("%w: unknown protocol %q", ErrProvisioningFailed, req.Protocol)
	}

	fmt.Fprintf(&sb, "\necho %q\n", resultMarker)
	sb.WriteString(`printf '{"username":"%s","domain":"%s","ip":"%s","city":"%s","public_key":"%s","uuid":"%s","expiration":"%s"}\n' \
  "$user" "$domain" "$ip" "$city" "$pubkey" "$uuid" "$exp_date"
`)
	return sb.String(), nil
}

func appendSSHBody(sb *strings.Builder, req Request) error {
	if !req.Trial && req.Action == "create" && req.Password == "" {
		return fmt.Errorf("%w: ssh create requires a password", ErrProvisioningFailed)
	}
	sb.WriteString(`uuid=""` + "\n")
	switch {
	case req.Action == "renew":
		sb.WriteString(`id "$user" >/dev/null 2>&1 || { echo "NOUSER" >&2; exit 1; }
chage -E "$exp_date" "$user"
`)
	default:
		fmt.Fprintf(sb, "pass=%q\n", req.Password)
		sb.WriteString(`id "$user" >/dev/null 2>&1 && { echo "DUPLICATE" >&2; exit 1; }
useradd -e "$exp_date" -s /bin/false -M "$user"
echo "$user:$pass" | chpasswd
`)
	}
	return nil
}

func appendXrayBody(sb *strings.Builder, req Request) {
	fmt.Fprintf(sb, "uuid=%q\n", uuid.NewString())
	proto := string(req.Protocol)
	switch req.Action {
	case "renew":
		fmt.Fprintf(sb, `grep -qw "$user" /etc/xray/%s.db 2>/dev/null || { echo "NOUSER" >&2; exit 1; }
sed -i "s|^### $user .*|### $user $exp_date|" /etc/xray/%s.db
`, proto, proto)
	default:
		fmt.Fprintf(sb, `grep -qw "$user" /etc/xray/%s.db 2>/dev/null && { echo "DUPLICATE" >&2; exit 1; }
mkdir -p /etc/xray
echo "### $user $exp_date $uuid $quota $ip_limit" >> /etc/xray/%s.db
`, proto, proto)
	}
	sb.WriteString("systemctl restart xray >/dev/null 2>&1 || true\n")
}

// parseResult pulls the JSON object printed after the marker out of the
// remote stdout.
func parseResult(output string) (map[string]string, error) {
	idx := strings.LastIndex(output, resultMarker)
	if idx < 0 {
		return nil, fmt.Errorf("%w: no result marker in remote output", ErrProvisioningFailed)
	}
	rest := strings.TrimSpace(output[idx+len(resultMarker):])
	line, _, _ := strings.Cut(rest, "\n")

	var m map[string]string
	if err := json.Unmarshal([]byte(line), &m); err != nil {
		return nil, fmt.Errorf("%w: malformed remote response: %v", ErrProvisioningFailed, err)
	}
	if m["username"] == "" {
		return nil, fmt.Errorf("%w: remote response missing username", ErrProvisioningFailed)
	}
	return m, nil
}
