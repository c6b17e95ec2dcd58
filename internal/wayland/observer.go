package wayland

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/google/uuid"

	"go.wayclip.dev/wayclip/internal/entry"
)

// ErrProtocolUnsupported is returned by Run when the compositor does not
// advertise the zwlr_data_control_manager_v1 global — a startup failure
// distinct from a later connection loss.
var ErrProtocolUnsupported = errors.New("wayland: compositor does not support wlr-data-control")

// Observer drives the wlr-data-control protocol state machine on a
// dedicated OS thread: it binds the manager and seat globals, opens one
// data-control device, and emits a ClipboardSnapshot for every selection
// that negotiates an acceptable MIME type. Per-offer reads happen
// synchronously on the dispatch goroutine itself — the next protocol event
// is only processed once the previous offer has been drained and either
// stored or discarded — which is what keeps backpressure serial and memory
// bounded per spec.
type Observer struct {
	minEntrySize uint64
	maxEntrySize uint64
	logger       *slog.Logger
	snapshots    chan entry.ClipboardSnapshot

	c          *conn
	registryID uint32

	managerName, managerVersion uint32
	seatName, seatVersion       uint32

	managerID, seatID, deviceID uint32

	offers map[uint32]*pendingOffer
}

// New returns an Observer that rejects offers whose drained payload falls
// outside [minEntrySize, maxEntrySize], per spec.md §3's "rejected at the
// observer boundary and never reach the store."
func New(minEntrySize, maxEntrySize uint64, logger *slog.Logger) *Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Observer{
		minEntrySize: minEntrySize,
		maxEntrySize: maxEntrySize,
		logger:       logger,
		snapshots:    make(chan entry.ClipboardSnapshot),
		offers:       make(map[uint32]*pendingOffer),
	}
}

// Snapshots returns the channel of drained clipboard selections. The
// channel is never closed by Observer; callers should stop reading once
// Run returns.
func (o *Observer) Snapshots() <-chan entry.ClipboardSnapshot {
	return o.snapshots
}

// Close tears down the Wayland connection, causing a blocked Run to return.
func (o *Observer) Close() error {
	if o.c == nil {
		return nil
	}
	return o.c.Close()
}

// Run connects to the compositor, binds the required globals, and blocks
// dispatching events until the connection is lost or closed. It must run
// on its own goroutine; it locks that goroutine to its OS thread for the
// duration, matching the one-thread-owns-the-Wayland-connection model.
func (o *Observer) Run() error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	c, err := dial()
	if err != nil {
		return err
	}
	o.c = c
	defer c.Close()

	o.registryID = c.allocID()
	if err := getRegistry(c, o.registryID); err != nil {
		return err
	}
	if err := o.roundtrip(); err != nil {
		return err
	}

	if o.managerName == 0 {
		return ErrProtocolUnsupported
	}
	if o.seatName == 0 {
		return fmt.Errorf("wayland: compositor advertises no wl_seat")
	}

	o.managerID = c.allocID()
	if err := bind(c, o.registryID, o.managerName, interfaceDataControlManager, o.managerVersion, o.managerID); err != nil {
		return err
	}
	o.seatID = c.allocID()
	if err := bind(c, o.registryID, o.seatName, interfaceSeat, o.seatVersion, o.seatID); err != nil {
		return err
	}
	if err := o.roundtrip(); err != nil {
		return err
	}

	o.deviceID = c.allocID()
	if err := getDataDevice(c, o.managerID, o.seatID, o.deviceID); err != nil {
		return err
	}

	for {
		ev, err := c.readEvent()
		if err != nil {
			return fmt.Errorf("wayland: lost connection to compositor: %w", err)
		}
		if err := o.handleEvent(ev); err != nil {
			return err
		}
	}
}

// roundtrip sends wl_display.sync and processes events (applying any
// global/remove updates along the way) until the matching callback fires.
func (o *Observer) roundtrip() error {
	cbID := o.c.allocID()
	if err := syncRoundtrip(o.c, cbID); err != nil {
		return err
	}
	for {
		ev, err := o.c.readEvent()
		if err != nil {
			return fmt.Errorf("wayland: roundtrip: %w", err)
		}
		if ev.Sender == cbID && ev.Opcode == callbackEvtDone {
			return nil
		}
		if err := o.handleEvent(ev); err != nil {
			return err
		}
	}
}

func (o *Observer) handleEvent(ev event) error {
	switch {
	case ev.Sender == displayObjectID:
		return o.handleDisplayEvent(ev)
	case ev.Sender == o.registryID:
		return o.handleRegistryEvent(ev)
	case o.deviceID != 0 && ev.Sender == o.deviceID:
		return o.handleDeviceEvent(ev)
	default:
		if offer, ok := o.offers[ev.Sender]; ok {
			o.handleOfferEvent(offer, ev)
		}
	}
	return nil
}

func (o *Observer) handleDisplayEvent(ev event) error {
	if ev.Opcode != displayEvtError {
		return nil
	}
	r := newArgReader(ev.Args)
	objID := r.Uint32()
	code := r.Uint32()
	msg := r.String()
	return fmt.Errorf("wayland: protocol error on object %d (code %d): %s", objID, code, msg)
}

func (o *Observer) handleRegistryEvent(ev event) error {
	r := newArgReader(ev.Args)
	switch ev.Opcode {
	case registryEvtGlobal:
		name := r.Uint32()
		iface := r.String()
		version := r.Uint32()
		switch iface {
		case interfaceDataControlManager:
			o.managerName, o.managerVersion = name, version
		case interfaceSeat:
			o.seatName, o.seatVersion = name, version
		}
	case registryEvtGlobalRemove:
		// A global disappearing mid-session (compositor reload) is not
		// handled beyond this point; the next protocol error or EOF from
		// the compositor will surface as a fatal connection loss.
	}
	return nil
}

func (o *Observer) handleDeviceEvent(ev event) error {
	r := newArgReader(ev.Args)
	switch ev.Opcode {
	case deviceEvtDataOffer:
		id := r.Uint32()
		o.offers[id] = newPendingOffer(id)
	case deviceEvtSelection:
		id := r.Uint32()
		if id == 0 {
			return nil
		}
		offer, ok := o.offers[id]
		if !ok {
			return nil
		}
		offer.selectionReady()
		if offer.state == Discarded {
			offerDestroy(o.c, offer.id)
			delete(o.offers, offer.id)
			return nil
		}
		o.startReceive(offer)
	case deviceEvtFinished:
		o.logger.Warn("wlr-data-control device finished")
	case deviceEvtPrimarySelection:
		// Primary selection is out of scope per spec; only the regular
		// selection is observed.
	}
	return nil
}

func (o *Observer) handleOfferEvent(offer *pendingOffer, ev event) {
	if ev.Opcode == offerEvtOffer {
		r := newArgReader(ev.Args)
		offer.addMIME(r.String())
	}
}

// startReceive creates a pipe, asks the compositor to write the chosen
// MIME's bytes into it, destroys the offer (it is single-use), and drains
// the read end to completion before returning. This runs on the dispatch
// goroutine itself and blocks it for the duration of the read, per spec §5:
// "the next selection event is only handled after the previous snapshot has
// been stored or discarded" and the dispatch loop "suspends only ... inside
// its own pipe reads." There is never more than one in-flight receive.
func (o *Observer) startReceive(offer *pendingOffer) {
	readFD, writeFD, err := os.Pipe()
	if err != nil {
		o.logger.Error("create receive pipe", "err", err)
		delete(o.offers, offer.id)
		return
	}

	sendErr := offerReceive(o.c, offer.id, offer.chosenMIME, int(writeFD.Fd()))
	offerDestroy(o.c, offer.id)
	writeFD.Close()
	delete(o.offers, offer.id)

	if sendErr != nil {
		o.logger.Error("send offer receive request", "err", sendErr)
		readFD.Close()
		return
	}

	o.drainOffer(readFD, offer.chosenMIME, offer.corrID)
}

func (o *Observer) drainOffer(f *os.File, mime string, corrID uuid.UUID) {
	defer f.Close()

	data, err := drainLimited(f, o.maxEntrySize)
	if err != nil {
		o.logger.Debug("discarding oversize or unreadable offer", "mime", mime, "offer", corrID, "err", err)
		return
	}
	if uint64(len(data)) < o.minEntrySize {
		o.logger.Debug("discarding undersize offer", "mime", mime, "offer", corrID, "bytes", len(data))
		return
	}

	contentType, ok := entry.ClassifyMIME(mime)
	if !ok {
		o.logger.Debug("discarding offer with unacceptable mime type", "mime", mime, "offer", corrID)
		return
	}

	o.logger.Debug("drained clipboard offer", "mime", mime, "offer", corrID, "bytes", len(data))
	o.snapshots <- entry.ClipboardSnapshot{MimeType: mime, ContentType: contentType, Data: data}
}
