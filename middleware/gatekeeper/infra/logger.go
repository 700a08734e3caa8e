package infra

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"chat-gatekeeper/middleware/gatekeeper/domain"
)

const accessLogLayout = "2006-01-02 15:04:05"

// AccessLogger implementa domain.AccessSink com escrita desacoplada.
//
// Os eventos entram em um canal com buffer e uma única goroutine escreve no
// sink, então um destino lento nunca adiciona latência à decisão de
// admissão. Buffer cheio descarta o evento (contado em Dropped); erro de
// escrita é engolido (contado em WriteErrors). Logging é best-effort: nada
// aqui rejeita ou bloqueia uma requisição.
type AccessLogger struct {
	w      io.Writer
	closer io.Closer

	ch   chan domain.AccessEvent
	done chan struct{}
	wg   sync.WaitGroup

	dropped   atomic.Uint64
	writeErrs atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

type LoggerOption func(*loggerConfig)

type loggerConfig struct {
	bufferSize int
}

func WithLoggerBuffer(n int) LoggerOption {
	return func(c *loggerConfig) { c.bufferSize = n }
}

// NewAccessLogger escreve no writer recebido.
func NewAccessLogger(w io.Writer, opts ...LoggerOption) *AccessLogger {
	cfg := loggerConfig{bufferSize: 256}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.bufferSize <= 0 {
		cfg.bufferSize = 1
	}

	l := &AccessLogger{
		w:    w,
		ch:   make(chan domain.AccessEvent, cfg.bufferSize),
		done: make(chan struct{}),
	}

	l.wg.Add(1)
	go l.run()

	return l
}

// OpenAccessLog abre (ou cria) o arquivo em modo append e loga nele.
func OpenAccessLog(path string, opts ...LoggerOption) (*AccessLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open access log: %w", err)
	}
	l := NewAccessLogger(f, opts...)
	l.closer = f
	return l, nil
}

// Record implementa domain.AccessSink. Nunca bloqueia: com o buffer cheio o
// evento é descartado. Sempre retorna nil.
func (l *AccessLogger) Record(_ context.Context, ev domain.AccessEvent) error {
	if l == nil || l.closed.Load() {
		return nil
	}

	select {
	case l.ch <- ev:
	case <-l.done:
	default:
		l.dropped.Add(1)
	}
	return nil
}

func (l *AccessLogger) run() {
	defer l.wg.Done()

	for {
		select {
		case ev := <-l.ch:
			l.write(ev)
		case <-l.done:
			// drena o que sobrou antes de encerrar
			for {
				select {
				case ev := <-l.ch:
					l.write(ev)
				default:
					return
				}
			}
		}
	}
}

func (l *AccessLogger) write(ev domain.AccessEvent) {
	line := fmt.Sprintf("%s - User: %s - Path: %s\n", ev.At.Format(accessLogLayout), ev.User, ev.Path)
	if _, err := io.WriteString(l.w, line); err != nil {
		l.writeErrs.Add(1)
	}
}

// Close drena o buffer, encerra a goroutine de escrita e fecha o arquivo
// quando o logger foi aberto via OpenAccessLog.
func (l *AccessLogger) Close() {
	if l == nil {
		return
	}
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		close(l.done)
		l.wg.Wait()
		if l.closer != nil {
			_ = l.closer.Close()
		}
	})
}

// Dropped informa quantos eventos foram descartados por buffer cheio.
func (l *AccessLogger) Dropped() uint64 {
	if l == nil {
		return 0
	}
	return l.dropped.Load()
}

// WriteErrors informa quantas escritas falharam.
func (l *AccessLogger) WriteErrors() uint64 {
	if l == nil {
		return 0
	}
	return l.writeErrs.Load()
}
