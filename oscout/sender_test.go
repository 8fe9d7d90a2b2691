package oscout

import (
	"net"
	"testing"
	"time"

	"github.com/hypebeast/go-osc/osc"

	"github.com/cwbudde/steel-capture/steelcap"
)

func TestNewSenderRejectsBadTarget(t *testing.T) {
	if _, err := NewSender("not-a-target"); err == nil {
		t.Fatal("expected error for unparseable target")
	}
	if _, err := NewSender("127.0.0.1:notaport"); err == nil {
		t.Fatal("expected error for non-numeric port")
	}
}

func TestSenderSendsVolume(t *testing.T) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer conn.Close()

	addr := conn.LocalAddr().(*net.UDPAddr)
	s, err := NewSender(addr.String())
	if err != nil {
		t.Fatalf("NewSender: %v", err)
	}

	frame := steelcap.CaptureFrame{Volume: 0.42}
	done := make(chan struct{})
	go func() {
		if err := s.sendFloat("/steel/volume", frame.Volume); err != nil {
			t.Errorf("sendFloat: %v", err)
		}
		close(done)
	}()

	buf := make([]byte, 1024)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _, err := conn.ReadFrom(buf)
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	<-done

	pkt, err := osc.ParsePacket(string(buf[:n]))
	if err != nil {
		t.Fatalf("ParsePacket: %v", err)
	}
	msg, ok := pkt.(*osc.Message)
	if !ok {
		t.Fatalf("expected *osc.Message, got %T", pkt)
	}
	if msg.Address != "/steel/volume" {
		t.Errorf("address = %q, want /steel/volume", msg.Address)
	}
}
