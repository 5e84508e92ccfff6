package mail

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/smtp"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// sendPause is the fixed inter-message delay on bulk sends. It exists only
// to respect the upstream provider's rate limit; it is throttling, not
// concurrency control.
const sendPause = 550 * time.Millisecond

// Sender delivers one message. The SMTP implementation below is the
// production one; tests substitute a recorder.
type Sender interface {
	Send(to, subject, body string) error
}

// SMTPSender delivers through a plain SMTP relay.
type SMTPSender struct {
	Addr string // host:port of the relay
	From string
}

func (s SMTPSender) Send(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		s.From, to, subject, body)
	return smtp.SendMail(s.Addr, nil, s.From, []string{to}, []byte(msg))
}

// StartConsumer connects to RabbitMQ, declares the mail.outbound queue
// (durable), and starts consuming. It runs a reconnect loop forever,
// logging processing errors and rejecting the offending message so the
// worker keeps operating. Intended to run on its own goroutine from main.
func StartConsumer(sender Sender) {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(brokerURL())
		if err != nil {
			log.Printf("mail-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn, sender); err != nil {
			log.Printf("mail-consumer: consume loop ended: %v; reconnecting", err)
			time.Sleep(2 * time.Second)
			continue
		}
	}
}

func consumeLoop(conn *amqp.Connection, sender Sender) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(10, 0, false); err != nil {
		log.Printf("mail-consumer: set QoS failed: %v", err)
	}

	if _, err := ch.QueueDeclare(outboundQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(outboundQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := HandleMessage(sender, d.Body); err != nil {
			log.Printf("mail-consumer: handle message failed: %v", err)
			_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

// HandleMessage decodes and delivers one queued event. Broadcast fan-out is
// sequential with a fixed pause between recipients; per-recipient failures
// are counted and logged without aborting the batch.
func HandleMessage(sender Sender, body []byte) error {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}

	switch ev.Type {
	case TypePasswordReset:
		return sender.Send(ev.To,
			"Reset your Inkhouse password",
			"Use this token to reset your password within the next hour: "+ev.Token)
	case TypeBroadcast:
		failed := 0
		for i, to := range ev.Recipients {
			if i > 0 {
				time.Sleep(sendPause)
			}
			if err := sender.Send(to, ev.Subject, ev.Body); err != nil {
				failed++
				log.Printf("mail-consumer: broadcast to %s failed: %v", to, err)
			}
		}
		log.Printf("mail-consumer: broadcast done | recipients=%d | failed=%d", len(ev.Recipients), failed)
		return nil
	default:
		return fmt.Errorf("unknown event type %q", ev.Type)
	}
}
