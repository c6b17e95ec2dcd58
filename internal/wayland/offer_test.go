package wayland

import (
	"bytes"
	"strings"
	"testing"
)

func TestSelectMIMEPrefersUTF8PlainText(t *testing.T) {
	got, ok := selectMIME([]string{"text/html", "text/plain;charset=utf-8", "text/plain"})
	if !ok || got != "text/plain;charset=utf-8" {
		t.Errorf("selectMIME() = (%q, %v), want text/plain;charset=utf-8", got, ok)
	}
}

func TestSelectMIMEFallsBackToPlainText(t *testing.T) {
	got, ok := selectMIME([]string{"text/html", "text/plain"})
	if !ok || got != "text/plain" {
		t.Errorf("selectMIME() = (%q, %v), want text/plain", got, ok)
	}
}

func TestSelectMIMEFallsBackToOtherText(t *testing.T) {
	got, ok := selectMIME([]string{"application/x-moz", "text/html"})
	if !ok || got != "text/html" {
		t.Errorf("selectMIME() = (%q, %v), want text/html", got, ok)
	}
}

func TestSelectMIMEPrefersPNGOverJPEG(t *testing.T) {
	got, ok := selectMIME([]string{"image/jpeg", "image/png"})
	if !ok || got != "image/png" {
		t.Errorf("selectMIME() = (%q, %v), want image/png", got, ok)
	}
}

func TestSelectMIMERejectsUnacceptable(t *testing.T) {
	_, ok := selectMIME([]string{"application/x-moz-nativeimage", "chromium/x-web-custom-data"})
	if ok {
		t.Errorf("selectMIME() ok = true, want false")
	}
}

func TestPendingOfferSelectionReadyTransitionsToReceiving(t *testing.T) {
	o := newPendingOffer(7)
	o.addMIME("text/plain")
	o.selectionReady()
	if o.state != Receiving {
		t.Errorf("state = %v, want Receiving", o.state)
	}
	if o.chosenMIME != "text/plain" {
		t.Errorf("chosenMIME = %q", o.chosenMIME)
	}
}

func TestPendingOfferSelectionReadyDiscardsWhenNoMatch(t *testing.T) {
	o := newPendingOffer(7)
	o.addMIME("application/x-unknown")
	o.selectionReady()
	if o.state != Discarded {
		t.Errorf("state = %v, want Discarded", o.state)
	}
}

func TestDrainLimitedReadsWithinCap(t *testing.T) {
	data, err := drainLimited(strings.NewReader("hello"), 10)
	if err != nil {
		t.Fatalf("drainLimited: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("data = %q", data)
	}
}

func TestDrainLimitedRejectsOversize(t *testing.T) {
	_, err := drainLimited(bytes.NewReader(make([]byte, 100)), 10)
	if err != errOversize {
		t.Errorf("err = %v, want errOversize", err)
	}
}

func TestDrainLimitedExactBoundarySucceeds(t *testing.T) {
	data, err := drainLimited(bytes.NewReader(make([]byte, 10)), 10)
	if err != nil {
		t.Fatalf("drainLimited: %v", err)
	}
	if len(data) != 10 {
		t.Errorf("len(data) = %d, want 10", len(data))
	}
}
