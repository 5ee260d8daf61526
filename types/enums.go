package types

type Role string

const (
	RoleUser     Role = "user"
	RoleReseller Role = "reseller"
	RoleAdmin    Role = "admin"
)

type Tier string

const (
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
)

type Protocol string

const (
	ProtocolSSH         Protocol = "ssh"
	ProtocolVMess       Protocol = "vmess"
	ProtocolVLess       Protocol = "vless"
	ProtocolTrojan      Protocol = "trojan"
	ProtocolShadowsocks Protocol = "shadowsocks"
)

func ParseProtocol(s string) (Protocol, bool) {
	switch Protocol(s) {
	case ProtocolSSH, ProtocolVMess, ProtocolVLess, ProtocolTrojan, ProtocolShadowsocks:
		return Protocol(s), true
	}
	return "", false
}

type PurchaseAction string

const (
	ActionCreate PurchaseAction = "create"
	ActionRenew  PurchaseAction = "renew"
)

type DepositStatus string

const (
	DepositPending DepositStatus = "pending"
	DepositPaid    DepositStatus = "paid"
	DepositExpired DepositStatus = "expired"
)

type JournalStatus string

const (
	JournalCharged  JournalStatus = "charged"
	JournalSettled  JournalStatus = "settled"
	JournalRefunded JournalStatus = "refunded"
)
