package capture

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	"net"
	"sync"
)

var (
	jpegHeader = []byte{0xFF, 0xD8}
	jpegFooter = []byte{0xFF, 0xD9}
)

const maxPacketSize = 65507

// UDPSource reassembles JPEG frames streamed by network cameras, one frame
// split over consecutive datagrams. Each sender has its own buffer.
type UDPSource struct {
	conn    *net.UDPConn
	buffers map[string]*bytes.Buffer
	packet  []byte
	once    sync.Once
	closed  chan struct{}
}

// ListenUDP starts listening for camera datagrams on addr, e.g. ":8081".
func ListenUDP(addr string) (*UDPSource, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve UDP address %s: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on UDP %s: %w", addr, err)
	}
	return &UDPSource{
		conn:    conn,
		buffers: make(map[string]*bytes.Buffer),
		packet:  make([]byte, maxPacketSize),
		closed:  make(chan struct{}),
	}, nil
}

// Addr returns the local listening address.
func (s *UDPSource) Addr() net.Addr {
	return s.conn.LocalAddr()
}

// Read blocks until a complete frame has arrived from any sender.
func (s *UDPSource) Read() (Frame, error) {
	for {
		n, remote, err := s.conn.ReadFromUDP(s.packet)
		if err != nil {
			select {
			case <-s.closed:
				return Frame{}, ErrClosed
			default:
			}
			return Frame{}, fmt.Errorf("failed to read UDP packet: %w", err)
		}

		data := s.packet[:n]
		key := remote.IP.String()
		buf, ok := s.buffers[key]
		if !ok {
			buf = new(bytes.Buffer)
			s.buffers[key] = buf
		}

		if bytes.HasPrefix(data, jpegHeader) {
			buf.Reset()
		}
		buf.Write(data)

		if !bytes.HasSuffix(data, jpegFooter) {
			continue
		}

		frame := make([]byte, buf.Len())
		copy(frame, buf.Bytes())
		buf.Reset()

		cfg, _, err := image.DecodeConfig(bytes.NewReader(frame))
		if err != nil {
			// Lost datagrams leave a truncated frame; wait for the next one.
			continue
		}
		return Frame{Data: frame, Width: cfg.Width, Height: cfg.Height}, nil
	}
}

// Close stops the listener; a blocked Read returns ErrClosed.
func (s *UDPSource) Close() error {
	var err error
	s.once.Do(func() {
		close(s.closed)
		err = s.conn.Close()
	})
	return err
}
