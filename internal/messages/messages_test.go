package messages

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pertamax98/bot-vpn/types"
)

func TestRupiah(t *testing.T) {
	assert.Equal(t, "Rp0", Rupiah(0))
	assert.Equal(t, "Rp500", Rupiah(500))
	assert.Equal(t, "Rp5.000", Rupiah(5000))
	assert.Equal(t, "Rp50.042", Rupiah(50042))
	assert.Equal(t, "Rp1.000.000", Rupiah(1000000))
	assert.Equal(t, "-Rp10.000", Rupiah(-10000))
}

func TestEscape(t *testing.T) {
	assert.Equal(t, "a&amp;b &lt;c&gt;", Escape("  a&b <c>  "))
}

func TestProtocolPrompts(t *testing.T) {
	assert.Contains(t, ChooseTrialProtocol(), "Trial")
	assert.Contains(t, ChooseProtocol(types.ActionCreate), "Beli")
	assert.Contains(t, ChooseProtocol(types.ActionRenew), "Perpanjang")
}
