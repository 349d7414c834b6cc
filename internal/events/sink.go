package events

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/go-zeromq/zmq4"
)

// Config holds the bind addresses for the event/command sockets. This
// daemon plays the Concentratord server role, so it binds where the
// teacher's own client driver dialed (spec.md §6).
type Config struct {
	EventBindURL   string // PUB socket, gateway -> application
	CommandBindURL string // REP socket, application -> gateway
}

// DefaultConfig mirrors the conventional ipc:// paths ChirpStack
// Concentratord itself binds.
func DefaultConfig() Config {
	return Config{
		EventBindURL:   "ipc:///tmp/lora-gwd_event",
		CommandBindURL: "ipc:///tmp/lora-gwd_command",
	}
}

// DownlinkHandler is invoked for each accepted "down" command; it returns
// the ack to send back on the REP socket.
type DownlinkHandler func(DownlinkFrame) DownlinkTxAck

// GatewayIDHandler answers a "gateway_id" command.
type GatewayIDHandler func() GetGatewayIDResponse

// Sink publishes uplink/stats events and serves scheduling commands over
// ZeroMQ. Rather than dialing a SUB and a REQ socket as a client of
// Concentratord, this daemon binds a PUB and a REP socket, since it is
// itself the thing client applications connect to.
type Sink struct {
	cfg Config

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	running   bool
	eventSock zmq4.Socket
	cmdSock   zmq4.Socket

	onDownlink  DownlinkHandler
	onGatewayID GatewayIDHandler
}

// NewSink constructs a Sink bound to cfg's addresses once Start is called.
// Handlers may be nil at construction time and set later via SetHandlers
// (useful when the handlers are methods on an object that embeds the
// Sink itself, like runtime.Gateway).
func NewSink(cfg Config, onDownlink DownlinkHandler, onGatewayID GatewayIDHandler) *Sink {
	ctx, cancel := context.WithCancel(context.Background())
	return &Sink{
		cfg:         cfg,
		ctx:         ctx,
		cancel:      cancel,
		onDownlink:  onDownlink,
		onGatewayID: onGatewayID,
	}
}

// SetHandlers installs the command handlers. Must be called before Start.
func (s *Sink) SetHandlers(onDownlink DownlinkHandler, onGatewayID GatewayIDHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDownlink = onDownlink
	s.onGatewayID = onGatewayID
}

// Start binds both sockets and begins serving commands.
func (s *Sink) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("events: sink already running")
	}
	s.running = true
	s.mu.Unlock()

	s.eventSock = zmq4.NewPub(s.ctx)
	if err := s.eventSock.Listen(s.cfg.EventBindURL); err != nil {
		return fmt.Errorf("events: bind event socket: %w", err)
	}

	s.cmdSock = zmq4.NewRep(s.ctx)
	if err := s.cmdSock.Listen(s.cfg.CommandBindURL); err != nil {
		s.eventSock.Close()
		return fmt.Errorf("events: bind command socket: %w", err)
	}

	s.wg.Add(1)
	go s.commandLoop()

	log.Printf("events: sink listening event=%s command=%s", s.cfg.EventBindURL, s.cfg.CommandBindURL)
	return nil
}

// Stop closes both sockets and waits for the command loop to exit.
func (s *Sink) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()

	if s.eventSock != nil {
		s.eventSock.Close()
	}
	if s.cmdSock != nil {
		s.cmdSock.Close()
	}
	log.Println("events: sink stopped")
	return nil
}

// PublishUplink sends an UplinkFrame event under the "up" topic frame.
func (s *Sink) PublishUplink(f UplinkFrame) error {
	return s.publish("up", MarshalUplinkFrame(f))
}

// PublishStats sends a GatewayStats event under the "stats" topic frame.
func (s *Sink) PublishStats(st GatewayStats) error {
	return s.publish("stats", MarshalGatewayStats(st))
}

// PublishDownlinkAck sends an asynchronous DownlinkTxAck event, e.g. after
// the JIT Loop actually emits a packet handed off earlier via a "down"
// command (spec.md §4.5).
func (s *Sink) PublishDownlinkAck(a DownlinkTxAck) error {
	return s.publish("ack", MarshalDownlinkTxAck(a))
}

func (s *Sink) publish(topic string, payload []byte) error {
	s.mu.Lock()
	sock := s.eventSock
	s.mu.Unlock()
	if sock == nil {
		return fmt.Errorf("events: sink not started")
	}
	return sock.Send(zmq4.NewMsgFrom([]byte(topic), payload))
}

// commandLoop serves the REP socket: "down" (schedule a downlink) and
// "gateway_id" (identify the gateway), using the same two-frame
// [command-name, payload] shape as the event socket, but on the reply
// side instead of the subscribe side.
func (s *Sink) commandLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		msg, err := s.cmdSock.Recv()
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			continue
		}
		if len(msg.Frames) < 1 {
			continue
		}

		command := string(msg.Frames[0])
		var payload []byte
		if len(msg.Frames) > 1 {
			payload = msg.Frames[1]
		}

		reply := s.handleCommand(command, payload)
		if err := s.cmdSock.Send(zmq4.NewMsgFrom(reply)); err != nil {
			log.Printf("events: failed to send command reply: %v", err)
		}
	}
}

func (s *Sink) handleCommand(command string, payload []byte) []byte {
	switch command {
	case "down":
		frame, err := UnmarshalDownlinkFrame(payload)
		if err != nil {
			log.Printf("events: malformed downlink command: %v", err)
			return MarshalDownlinkTxAck(DownlinkTxAck{Status: TxAckInternalError})
		}
		ack := s.onDownlink(frame)
		return MarshalDownlinkTxAck(ack)
	case "gateway_id":
		resp := s.onGatewayID()
		return MarshalGetGatewayIDResponse(resp)
	default:
		log.Printf("events: unknown command %q", command)
		return MarshalDownlinkTxAck(DownlinkTxAck{Status: TxAckInternalError})
	}
}
