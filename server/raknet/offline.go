package raknet

import (
	"encoding/binary"
	"fmt"
	"time"
)

// unconnectedPing is sent by a client probing for a server before any
// session exists; the server answers with unconnectedPong carrying its MOTD.
type unconnectedPing struct {
	SendTimestamp int64
	ClientGUID    uint64
}

func decodeUnconnectedPing(buf []byte) (p unconnectedPing, err error) {
	if len(buf) < 1+8+16+8 {
		return p, fmt.Errorf("raknet: unconnected ping truncated")
	}
	off := 1
	p.SendTimestamp = int64(binary.BigEndian.Uint64(buf[off:]))
	off += 8 + 16 // skip magic
	p.ClientGUID = binary.BigEndian.Uint64(buf[off:])
	return p, nil
}

func encodeUnconnectedPong(sendTimestamp int64, serverGUID uint64, motd string) []byte {
	buf := make([]byte, 0, 1+8+8+16+2+len(motd))
	buf = append(buf, idUnconnectedPong)
	var ts, guid [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(sendTimestamp))
	binary.BigEndian.PutUint64(guid[:], serverGUID)
	buf = append(buf, ts[:]...)
	buf = append(buf, guid[:]...)
	buf = append(buf, offlineMessageDataID[:]...)
	var n [2]byte
	binary.BigEndian.PutUint16(n[:], uint16(len(motd)))
	buf = append(buf, n[:]...)
	return append(buf, motd...)
}

// openConnectionRequest1 negotiates the protocol version and lets the
// client discover the path MTU by padding the datagram.
type openConnectionRequest1 struct {
	ProtocolVersion byte
	MTUPaddingLen   int
}

func decodeOpenConnectionRequest1(buf []byte) (r openConnectionRequest1, err error) {
	if len(buf) < 1+16+1 {
		return r, fmt.Errorf("raknet: open connection request 1 truncated")
	}
	r.ProtocolVersion = buf[17]
	r.MTUPaddingLen = len(buf) - 18
	return r, nil
}

func encodeOpenConnectionReply1(serverGUID uint64, mtu int) []byte {
	buf := make([]byte, 0, 1+16+8+1+2)
	buf = append(buf, idOpenConnectionReply1)
	buf = append(buf, offlineMessageDataID[:]...)
	var guid [8]byte
	binary.BigEndian.PutUint64(guid[:], serverGUID)
	buf = append(buf, guid[:]...)
	buf = append(buf, 0) // no security/cookie support
	var m [2]byte
	binary.BigEndian.PutUint16(m[:], uint16(mtu))
	return append(buf, m[:]...)
}

// openConnectionRequest2 confirms the MTU and supplies the client GUID that
// will identify the session from here on.
type openConnectionRequest2 struct {
	MTU        int
	ClientGUID uint64
}

func decodeOpenConnectionRequest2(buf []byte) (r openConnectionRequest2, err error) {
	// magic(16) + server address(1+4+2, IPv4) + mtu(2) + client guid(8)
	if len(buf) < 1+16+7+2+8 {
		return r, fmt.Errorf("raknet: open connection request 2 truncated")
	}
	off := 1 + 16 + 7
	r.MTU = int(binary.BigEndian.Uint16(buf[off:]))
	off += 2
	r.ClientGUID = binary.BigEndian.Uint64(buf[off:])
	return r, nil
}

func encodeOpenConnectionReply2(serverGUID uint64, mtu int) []byte {
	buf := make([]byte, 0, 1+16+8+7+2+1)
	buf = append(buf, idOpenConnectionReply2)
	buf = append(buf, offlineMessageDataID[:]...)
	var guid [8]byte
	binary.BigEndian.PutUint64(guid[:], serverGUID)
	buf = append(buf, guid[:]...)
	buf = append(buf, encodeIPv4Placeholder()...)
	var m [2]byte
	binary.BigEndian.PutUint16(m[:], uint16(mtu))
	buf = append(buf, m[:]...)
	return append(buf, 0) // no encryption
}

// encodeIPv4Placeholder writes a zeroed client-address record; real RakNet
// echoes the client's observed address here, but nothing in this server's
// connection logic depends on the client trusting that value.
func encodeIPv4Placeholder() []byte {
	return []byte{4, 0, 0, 0, 0, 0, 0}
}

// connectionRequest is the first reliable message sent once a FrameSet
// session exists, opening the final handshake phase.
type connectionRequest struct {
	ClientGUID uint64
	SendTimestamp int64
}

func decodeConnectionRequest(buf []byte) (r connectionRequest, err error) {
	if len(buf) < 1+8+8 {
		return r, fmt.Errorf("raknet: connection request truncated")
	}
	r.ClientGUID = binary.BigEndian.Uint64(buf[1:])
	r.SendTimestamp = int64(binary.BigEndian.Uint64(buf[9:]))
	return r, nil
}

func encodeConnectionRequestAccepted(clientAddr []byte, sendTimestamp int64) []byte {
	buf := make([]byte, 0, 64)
	buf = append(buf, idConnectionRequestAccepted)
	buf = append(buf, clientAddr...)
	var sysIdx [2]byte
	binary.BigEndian.PutUint16(sysIdx[:], 0)
	buf = append(buf, sysIdx[:]...)
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(sendTimestamp))
	buf = append(buf, ts[:]...)
	var now [8]byte
	binary.BigEndian.PutUint64(now[:], uint64(time.Now().UnixMilli()))
	return append(buf, now[:]...)
}

func isNewIncomingConnection(buf []byte) bool {
	return len(buf) > 0 && buf[0] == idNewIncomingConnection
}

func encodeConnectedPing(sendTimestamp int64) []byte {
	buf := make([]byte, 9)
	buf[0] = idConnectedPing
	binary.BigEndian.PutUint64(buf[1:], uint64(sendTimestamp))
	return buf
}

func encodeIncompatibleProtocolVersion(serverGUID uint64) []byte {
	buf := make([]byte, 0, 1+1+16+8)
	buf = append(buf, idIncompatibleProtocolVersion)
	buf = append(buf, protocolVersion)
	buf = append(buf, offlineMessageDataID[:]...)
	var guid [8]byte
	binary.BigEndian.PutUint64(guid[:], serverGUID)
	return append(buf, guid[:]...)
}

func encodeConnectedPong(pingTimestamp int64) []byte {
	buf := make([]byte, 17)
	buf[0] = idConnectedPong
	binary.BigEndian.PutUint64(buf[1:], uint64(pingTimestamp))
	binary.BigEndian.PutUint64(buf[9:], uint64(time.Now().UnixMilli()))
	return buf
}
