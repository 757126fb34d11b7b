package logger_test

import (
	"strings"
	"testing"

	"github.com/beevik/nes6502/logger"
)

func expect(t *testing.T, got, exp string) {
	t.Helper()
	if got != exp {
		t.Errorf("log incorrect. exp: %q, got: %q", exp, got)
	}
}

func TestLogger(t *testing.T) {
	log := logger.NewLogger(100)
	w := &strings.Builder{}

	if log.Write(w) {
		t.Error("expected empty log")
	}
	expect(t, w.String(), "")

	log.Log("test", "this is a test")
	log.Write(w)
	expect(t, w.String(), "test: this is a test\n")

	w.Reset()
	log.Logf("test2", "value $%02X", 0x2a)
	log.Write(w)
	expect(t, w.String(), "test: this is a test\ntest2: value $2A\n")

	w.Reset()
	log.Tail(w, 100)
	expect(t, w.String(), "test: this is a test\ntest2: value $2A\n")

	w.Reset()
	log.Tail(w, 1)
	expect(t, w.String(), "test2: value $2A\n")

	w.Reset()
	log.Tail(w, 0)
	expect(t, w.String(), "")
}

func TestRepeat(t *testing.T) {
	log := logger.NewLogger(10)
	w := &strings.Builder{}

	log.Log("cart", "trainer\nskipped")
	log.Log("cart", "trainerskipped")
	log.Log("cart", "trainerskipped")
	log.Write(w)
	expect(t, w.String(), "cart: trainerskipped (repeat x3)\n")
	if log.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", log.Len())
	}
}

func TestMaxEntries(t *testing.T) {
	log := logger.NewLogger(3)
	for _, s := range []string{"a", "b", "c", "d", "e"} {
		log.Log("t", s)
	}
	w := &strings.Builder{}
	log.Write(w)
	expect(t, w.String(), "t: c\nt: d\nt: e\n")

	log.Clear()
	if log.Len() != 0 {
		t.Error("expected empty log after clear")
	}
}

func TestEcho(t *testing.T) {
	log := logger.NewLogger(10)
	w := &strings.Builder{}
	log.SetEcho(w)
	log.Log("nes", "device added")
	log.SetEcho(nil)
	log.Log("nes", "not echoed")
	expect(t, w.String(), "nes: device added\n")
}
