package client

import (
	"bufio"
	"context"
	"sync"

	"github.com/quic-go/webtransport-go"
)

// wtTransport is the preferred transport: QUIC datagrams for packets, one
// bidirectional stream of newline-delimited JSON for the reliable channel.
type wtTransport struct {
	sess   *webtransport.Session
	stream webtransport.Stream

	writeMu sync.Mutex

	msgs   chan Message
	errs   chan error
	cancel context.CancelFunc
}

// DialWebTransport connects the low-latency transport and opens the reliable
// stream. Any failure here makes the manager fall back to WebSocket for the
// rest of its lifetime.
func DialWebTransport(ctx context.Context, url string) (Transport, error) {
	var d webtransport.Dialer
	_, sess, err := d.Dial(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	stream, err := sess.OpenStreamSync(ctx)
	if err != nil {
		_ = sess.CloseWithError(0, "no stream")
		return nil, err
	}

	readCtx, cancel := context.WithCancel(context.Background())
	t := &wtTransport{
		sess:   sess,
		stream: stream,
		msgs:   make(chan Message, 64),
		errs:   make(chan error, 2),
		cancel: cancel,
	}
	go t.readDatagrams(readCtx)
	go t.readStream()
	return t, nil
}

// readDatagrams and readStream are the two independent read loops; both feed
// the single Receive channel so the manager stays one consumer.
func (t *wtTransport) readDatagrams(ctx context.Context) {
	for {
		b, err := t.sess.ReceiveDatagram(ctx)
		if err != nil {
			t.fail(err)
			return
		}
		select {
		case t.msgs <- Message{Binary: true, Data: b}:
		default:
			// Stale positions are worthless; drop when the consumer lags.
		}
	}
}

func (t *wtTransport) readStream() {
	sc := bufio.NewScanner(t.stream)
	sc.Buffer(make([]byte, 0, 4*1024), 64*1024)
	for sc.Scan() {
		line := make([]byte, len(sc.Bytes()))
		copy(line, sc.Bytes())
		t.msgs <- Message{Data: line}
	}
	err := sc.Err()
	if err == nil {
		err = context.Canceled
	}
	t.fail(err)
}

func (t *wtTransport) fail(err error) {
	select {
	case t.errs <- err:
	default:
	}
}

func (t *wtTransport) Receive(ctx context.Context) (Message, error) {
	select {
	case <-ctx.Done():
		return Message{}, ctx.Err()
	case err := <-t.errs:
		return Message{}, err
	case m := <-t.msgs:
		return m, nil
	}
}

func (t *wtTransport) SendMessage(b []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	_, err := t.stream.Write(append(b, '\n'))
	return err
}

func (t *wtTransport) SendPacket(b []byte) error {
	return t.sess.SendDatagram(b)
}

func (t *wtTransport) Unreliable() bool { return true }

func (t *wtTransport) Close() error {
	t.cancel()
	return t.sess.CloseWithError(0, "")
}
