package stealth

import (
	"crypto/rand"
	"testing"

	"github.com/botho-project/botho/crypto/curve"
)

func TestSendScanSpendRoundTrip(t *testing.T) {
	recipient, err := GenerateAccountKeys()
	if err != nil {
		t.Fatalf("GenerateAccountKeys: %v", err)
	}
	defaultAddr := recipient.DefaultAddress()

	r, err := curve.RandomScalar(rand.Reader)
	if err != nil {
		t.Fatalf("RandomScalar: %v", err)
	}
	sent := SendTo(defaultAddr, r)

	known := map[uint32]PublicAddress{IndexDefault: defaultAddr}
	result, ok := recipient.Scan(sent.PublicKey, sent.TargetKey, known)
	if !ok {
		t.Fatalf("recipient failed to recognize its own output")
	}
	if result.Subaddress != IndexDefault {
		t.Fatalf("got subaddress %d, want %d", result.Subaddress, IndexDefault)
	}

	x := recipient.DeriveSpendPrivate(sent.PublicKey, result.Subaddress)
	if !curve.ScalarBaseMult(x).Equal(sent.TargetKey) {
		t.Fatalf("derived one-time private key does not open target_key")
	}
}

func TestScanRejectsWrongViewKey(t *testing.T) {
	recipient, _ := GenerateAccountKeys()
	defaultAddr := recipient.DefaultAddress()

	other, _ := GenerateAccountKeys()

	r, _ := curve.RandomScalar(rand.Reader)
	sent := SendTo(defaultAddr, r)

	known := map[uint32]PublicAddress{IndexDefault: defaultAddr}
	if _, ok := other.Scan(sent.PublicKey, sent.TargetKey, known); ok {
		t.Fatalf("unrelated account incorrectly recognized the output")
	}
}

func TestKeyImageLinkability(t *testing.T) {
	recipient, _ := GenerateAccountKeys()
	defaultAddr := recipient.DefaultAddress()

	r1, _ := curve.RandomScalar(rand.Reader)
	sent1 := SendTo(defaultAddr, r1)
	known := map[uint32]PublicAddress{IndexDefault: defaultAddr}
	res1, _ := recipient.Scan(sent1.PublicKey, sent1.TargetKey, known)
	x1 := recipient.DeriveSpendPrivate(sent1.PublicKey, res1.Subaddress)

	// Deriving the spend key a second time from the SAME
	// (publicKey, subaddress) pair must reproduce the same key image, proving linkability is a
	// deterministic function of the one-time private key alone.
	x2 := recipient.DeriveSpendPrivate(sent1.PublicKey, res1.Subaddress)

	if !KeyImage(x1).Equal(KeyImage(x2)) {
		t.Fatalf("key images for the same one-time key differ")
	}

	r3, _ := curve.RandomScalar(rand.Reader)
	sent3 := SendTo(defaultAddr, r3)
	res3, _ := recipient.Scan(sent3.PublicKey, sent3.TargetKey, known)
	x3 := recipient.DeriveSpendPrivate(sent3.PublicKey, res3.Subaddress)
	if KeyImage(x1).Equal(KeyImage(x3)) {
		t.Fatalf("key images for distinct outputs unexpectedly match")
	}
}

func TestSubaddressesAreDistinct(t *testing.T) {
	acct, _ := GenerateAccountKeys()
	addr1, _ := acct.Subaddress(1)
	addr2, _ := acct.Subaddress(2)
	if addr1.SpendPublic.Equal(addr2.SpendPublic) {
		t.Fatalf("distinct subaddress indices produced the same spend public key")
	}
}
