package wayland

// Interface names as advertised by wl_registry.global, and the request/event
// opcodes this package needs from each. Only the subset of wl_display,
// wl_registry, wl_seat, and zwlr_data_control_v1 required to observe and
// drain clipboard selections is implemented; everything else a compositor
// advertises is ignored.
const (
	interfaceDataControlManager = "zwlr_data_control_manager_v1"
	interfaceSeat               = "wl_seat"
)

// wl_display
const (
	displayReqSync        uint16 = 0
	displayReqGetRegistry uint16 = 1

	displayEvtError    uint16 = 0
	displayEvtDeleteID uint16 = 1
)

// wl_registry
const (
	registryReqBind uint16 = 0

	registryEvtGlobal       uint16 = 0
	registryEvtGlobalRemove uint16 = 1
)

// wl_callback (used for sync roundtrips)
const (
	callbackEvtDone uint16 = 0
)

// zwlr_data_control_manager_v1
const (
	managerReqGetDataDevice uint16 = 1
)

// zwlr_data_control_device_v1
const (
	deviceEvtDataOffer        uint16 = 0
	deviceEvtSelection        uint16 = 1
	deviceEvtFinished         uint16 = 2
	deviceEvtPrimarySelection uint16 = 3
)

// zwlr_data_control_offer_v1
const (
	offerReqReceive uint16 = 0
	offerReqDestroy uint16 = 1

	offerEvtOffer uint16 = 0
)

func getRegistry(c *conn, registryID uint32) error {
	args := (&requestBuilder{}).Uint32(registryID).Bytes()
	return c.sendRequest(displayObjectID, displayReqGetRegistry, args, nil)
}

func syncRoundtrip(c *conn, callbackID uint32) error {
	args := (&requestBuilder{}).Uint32(callbackID).Bytes()
	return c.sendRequest(displayObjectID, displayReqSync, args, nil)
}

// bind implements the one dynamically-typed new_id in the core protocol:
// the wire form carries the interface name and version explicitly, since
// wl_registry.bind's new_id argument has no statically known interface.
func bind(c *conn, registryID, name uint32, iface string, version, newID uint32) error {
	args := (&requestBuilder{}).Uint32(name).String(iface).Uint32(version).Uint32(newID).Bytes()
	return c.sendRequest(registryID, registryReqBind, args, nil)
}

// getDataDevice sends zwlr_data_control_manager_v1.get_data_device, whose
// wire arguments are the new_id (the device being created) first, then the
// seat object.
func getDataDevice(c *conn, managerID, seatID, deviceID uint32) error {
	args := (&requestBuilder{}).Uint32(deviceID).Uint32(seatID).Bytes()
	return c.sendRequest(managerID, managerReqGetDataDevice, args, nil)
}

func offerReceive(c *conn, offerID uint32, mimeType string, fd int) error {
	args := (&requestBuilder{}).String(mimeType).Bytes()
	return c.sendRequest(offerID, offerReqReceive, args, []int{fd})
}

func offerDestroy(c *conn, offerID uint32) error {
	return c.sendRequest(offerID, offerReqDestroy, nil, nil)
}
