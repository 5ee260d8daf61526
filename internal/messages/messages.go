// Package messages holds every user-facing text. All output is Indonesian
// HTML, money is formatted as rupiah.
package messages

import (
	"fmt"
	"strings"

	"github.com/pertamax98/bot-vpn/types"
)

const ParseModeHTML = "HTML"

func Escape(s string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		"\"", "&quot;",
		"'", "&#39;",
	)
	return replacer.Replace(strings.TrimSpace(s))
}

// Rupiah renders 10000 as "Rp10.000".
func Rupiah(amount int64) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}
	digits := fmt.Sprintf("%d", amount)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(d)
	}
	if neg {
		return "-Rp" + b.String()
	}
	return "Rp" + b.String()
}

func tierLabel(t types.Tier) string {
	switch t {
	case types.TierPlatinum:
		return "🏆 Platinum"
	case types.TierGold:
		return "🥇 Gold"
	default:
		return "🥈 Silver"
	}
}

func roleLabel(role types.Role) string {
	switch role {
	case types.RoleAdmin:
		return "Admin"
	case types.RoleReseller:
		return "Reseller"
	default:
		return "Member"
	}
}

func ErrorDefault() string {
	return "🚫 <b>Terjadi kesalahan</b>\nSilakan coba lagi."
}

func UnknownCommand() string {
	return "❓ <b>Perintah tidak dikenal</b>\nKetik /start untuk melihat menu."
}

func AdminOnly() string {
	return "⛔ Perintah ini khusus admin."
}

func Welcome(storeName, name string, u *types.User) string {
	label := roleLabel(u.Role)
	if u.Role == types.RoleReseller {
		label += " " + tierLabel(u.Tier)
	}
	return fmt.Sprintf(
		"👋 <b>Selamat datang di %s</b>\n\n"+
			"👤 Nama: %s\n"+
			"🎖 Status: %s\n"+
			"💰 Saldo: <b>%s</b>\n\n"+
			"📌 Perintah:\n"+
			"/beli — beli akun VPN\n"+
			"/renew — perpanjang akun\n"+
			"/trial — akun trial gratis\n"+
			"/topup — isi saldo via QRIS\n"+
			"/saldo — cek saldo\n"+
			"/upgrade — jadi reseller\n"+
			"/komisi — laporan komisi reseller",
		Escape(storeName), Escape(name), label, Rupiah(u.Balance))
}

func BalanceInfo(balance int64) string {
	return fmt.Sprintf("💰 Saldo kamu: <b>%s</b>", Rupiah(balance))
}

func TopupAskAmount(minimum int64) string {
	return fmt.Sprintf("💳 <b>Top Up Saldo</b>\nKetik nominal top up (minimal %s):", Rupiah(minimum))
}

func TopupTooSmall(minimum int64) string {
	return fmt.Sprintf("⚠️ Nominal terlalu kecil. Minimal top up %s.", Rupiah(minimum))
}

func TopupBusy() string {
	return "⚠️ Sistem top up sedang sibuk, coba lagi sebentar lagi."
}

func TopupQRCaption(amount, providerAmount int64, minutes int) string {
	return fmt.Sprintf(
		"🧾 <b>Menunggu Pembayaran</b>\n\n"+
			"Nominal top up: %s\n"+
			"Bayar tepat: <b>%s</b>\n"+
			"⏳ Berlaku %d menit.\n\n"+
			"Scan QRIS di atas dan bayar persis sejumlah itu. Saldo masuk otomatis.",
		Rupiah(amount), Rupiah(providerAmount), minutes)
}

func TopupSuccess(amount, balance int64) string {
	return fmt.Sprintf("✅ <b>Top up berhasil</b>\nNominal: %s\nSaldo sekarang: <b>%s</b>",
		Rupiah(amount), Rupiah(balance))
}

func TopupExpired(amount int64) string {
	return fmt.Sprintf("⌛ <b>Top up kedaluwarsa</b>\nPembayaran %s tidak terdeteksi. Ulangi /topup jika masih ingin mengisi saldo.",
		Rupiah(amount))
}

func InsufficientFunds(balance int64) string {
	return fmt.Sprintf("🚫 <b>Saldo tidak cukup</b>\nSaldo kamu %s. Isi dulu lewat /topup.", Rupiah(balance))
}

func CommissionSummary(total int64, tier types.Tier, recent []types.SaleRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 <b>Laporan Komisi</b>\n\nTotal komisi: <b>%s</b>\nTier: %s\n",
		Rupiah(total), tierLabel(tier))
	if len(recent) > 0 {
		b.WriteString("\nPenjualan terakhir:\n")
		for _, s := range recent {
			fmt.Fprintf(&b, "• %s %s — komisi %s\n", s.Protocol, Escape(s.Username), Rupiah(s.Commission))
		}
	}
	return b.String()
}

func TierPromoted(tier types.Tier) string {
	return fmt.Sprintf("🎉 <b>Selamat!</b> Tier reseller kamu naik ke %s.", tierLabel(tier))
}

func UpgradeOffer(cost int64) string {
	return fmt.Sprintf(
		"⭐ <b>Upgrade Reseller</b>\n\n"+
			"Biaya: <b>%s</b> (sekali bayar)\n"+
			"Benefit: diskon harga 10-30%% dan komisi 10%% tiap penjualan.\n\n"+
			"Ketik /upgrade confirm untuk lanjut.", Rupiah(cost))
}

func UpgradeDone(balance int64) string {
	return fmt.Sprintf("✅ <b>Kamu sekarang reseller!</b>\nTier awal: %s\nSisa saldo: %s",
		tierLabel(types.TierSilver), Rupiah(balance))
}

func AlreadyReseller() string {
	return "ℹ️ Kamu sudah terdaftar sebagai reseller."
}

func ChooseProtocol(action types.PurchaseAction) string {
	if action == types.ActionRenew {
		return "🔁 <b>Perpanjang Akun</b>\nPilih jenis akun:"
	}
	return "🛒 <b>Beli Akun</b>\nPilih jenis akun:"
}

func ChooseTrialProtocol() string {
	return "🎁 <b>Akun Trial</b>\nPilih jenis akun:"
}

func ChooseServer() string {
	return "🌐 Pilih server:"
}

func AskUsername() string {
	return "✍️ Ketik username (3-20 huruf/angka):"
}

func AskPassword() string {
	return "🔑 Ketik password (minimal 6 huruf/angka):"
}

func AskDuration() string {
	return "📅 Ketik masa aktif dalam hari (1-365):"
}

func InvalidUsername() string {
	return "⚠️ Username harus 3-20 karakter huruf atau angka, tanpa spasi."
}

func InvalidPassword() string {
	return "⚠️ Password minimal 6 karakter huruf atau angka."
}

func InvalidDuration() string {
	return "⚠️ Masa aktif harus angka 1 sampai 365 hari."
}

func InvalidAmount() string {
	return "⚠️ Ketik angka saja, contoh: 10000"
}

func ServerFull() string {
	return "🚫 Server penuh. Pilih server lain."
}

func ServerNotFound() string {
	return "🚫 Server tidak ditemukan."
}

func NoServers() string {
	return "🚫 Belum ada server tersedia. Hubungi admin."
}

func AccountNotActive() string {
	return "🚫 Akun tidak ditemukan di bot ini. Hanya akun yang dibuat lewat bot ini yang bisa diperpanjang."
}

func ProvisioningFailed() string {
	return "🚫 <b>Gagal membuat akun di server</b>\nSaldo kamu sudah dikembalikan. Coba lagi atau pilih server lain."
}

func TrialLimitReached() string {
	return "⏳ Jatah trial hari ini sudah habis. Coba lagi besok."
}

func Receipt(action types.PurchaseAction, protocol types.Protocol, d *types.AccountDetails, days int, price, balance int64) string {
	var b strings.Builder
	if action == types.ActionRenew {
		b.WriteString("✅ <b>Akun Berhasil Diperpanjang</b>\n\n")
	} else {
		b.WriteString("✅ <b>Akun Berhasil Dibuat</b>\n\n")
	}
	fmt.Fprintf(&b, "Jenis: <b>%s</b>\n", strings.ToUpper(string(protocol)))
	fmt.Fprintf(&b, "Username: <code>%s</code>\n", Escape(d.Username))
	if d.Password != "" {
		fmt.Fprintf(&b, "Password: <code>%s</code>\n", Escape(d.Password))
	}
	if d.UUID != "" {
		fmt.Fprintf(&b, "UUID: <code>%s</code>\n", Escape(d.UUID))
	}
	if d.Domain != "" {
		fmt.Fprintf(&b, "Host: <code>%s</code>\n", Escape(d.Domain))
	}
	if d.Expiration != "" {
		fmt.Fprintf(&b, "Berlaku sampai: %s\n", Escape(d.Expiration))
	}
	fmt.Fprintf(&b, "\nMasa aktif: %d hari\nHarga: %s\nSisa saldo: <b>%s</b>", days, Rupiah(price), Rupiah(balance))
	return b.String()
}

func TrialReceipt(protocol types.Protocol, d *types.AccountDetails, minutes int) string {
	var b strings.Builder
	b.WriteString("🎁 <b>Akun Trial</b>\n\n")
	fmt.Fprintf(&b, "Jenis: <b>%s</b>\n", strings.ToUpper(string(protocol)))
	fmt.Fprintf(&b, "Username: <code>%s</code>\n", Escape(d.Username))
	if d.Password != "" {
		fmt.Fprintf(&b, "Password: <code>%s</code>\n", Escape(d.Password))
	}
	if d.UUID != "" {
		fmt.Fprintf(&b, "UUID: <code>%s</code>\n", Escape(d.UUID))
	}
	if d.Domain != "" {
		fmt.Fprintf(&b, "Host: <code>%s</code>\n", Escape(d.Domain))
	}
	fmt.Fprintf(&b, "\n⏳ Berlaku %d menit.", minutes)
	return b.String()
}

func GroupSale(storeName string, protocol types.Protocol, days int) string {
	return fmt.Sprintf("🛒 Transaksi baru di <b>%s</b>: akun %s %d hari. Terima kasih! 🙏",
		Escape(storeName), strings.ToUpper(string(protocol)), days)
}

func ServerList(servers []types.Server, admin bool) string {
	if len(servers) == 0 {
		return NoServers()
	}
	var b strings.Builder
	b.WriteString("🌐 <b>Daftar Server</b>\n\n")
	for _, s := range servers {
		fmt.Fprintf(&b, "• <b>%s</b> — %s/hari, slot %d/%d\n",
			Escape(s.Name), Rupiah(s.PricePerDay), s.AccountsCreated, s.AccountLimit)
		if admin {
			fmt.Fprintf(&b, "  id %d, domain <code>%s</code>\n", s.ID, Escape(s.Domain))
		}
	}
	return b.String()
}

func ServerAdded(id int64, name string) string {
	return fmt.Sprintf("✅ Server <b>%s</b> ditambahkan dengan id %d.", Escape(name), id)
}

func ServerDeleted(id int64) string {
	return fmt.Sprintf("✅ Server %d dihapus.", id)
}

func PriceUpdated(id, price int64) string {
	return fmt.Sprintf("✅ Harga server %d sekarang %s/hari.", id, Rupiah(price))
}

func SaldoSet(userID, amount int64) string {
	return fmt.Sprintf("✅ Saldo user %d di-set ke %s.", userID, Rupiah(amount))
}

func KomisiReset() string {
	return "✅ Semua komisi reseller di-reset, tier kembali ke Silver."
}

func Usage(cmd string) string {
	return "⚠️ Format salah. Contoh:\n<code>" + Escape(cmd) + "</code>"
}
