package server

import (
	"fmt"
	"log"
	"strconv"

	"gopkg.in/gomail.v2"

	"calcgo/pkg/calc"
	"calcgo/pkg/opcode"
)

// AlarmConfig describes an alarm condition and where to report it. Expr is
// an ordinary expression evaluated with the latest result bound to VAL;
// any nonzero value raises the alarm.
type AlarmConfig struct {
	Expr     string
	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	From     string
	To       string
}

// AlarmNotifier sends an email whenever an evaluation result trips the
// configured condition.
type AlarmNotifier struct {
	cfg  AlarmConfig
	post opcode.Instructions

	// send is replaceable in tests
	send func(subject, body string) error
}

func NewAlarmNotifier(cfg AlarmConfig) (*AlarmNotifier, error) {
	post, err := calc.Compile(cfg.Expr)
	if err != nil {
		return nil, fmt.Errorf("alarm expression: %v", err)
	}
	n := &AlarmNotifier{cfg: cfg, post: post}
	n.send = n.sendMail
	return n, nil
}

// Check evaluates the alarm condition against result and mails a report
// when it is nonzero. Evaluation or delivery failures are logged, never
// propagated: an alarm must not break the evaluation path.
func (n *AlarmNotifier) Check(expr string, result float64) {
	var args [calc.NArgs]float64
	v, err := calc.Perform(n.post, &args, result)
	if err != nil {
		log.Printf("alarm condition failed: %v", err)
		return
	}
	if v == 0 {
		return
	}

	subject := "calc alarm: " + n.cfg.Expr
	body := fmt.Sprintf("Expression %q evaluated to %s, tripping alarm condition %q.",
		expr, strconv.FormatFloat(result, 'g', -1, 64), n.cfg.Expr)
	if err := n.send(subject, body); err != nil {
		log.Printf("alarm mail failed: %v", err)
	}
}

func (n *AlarmNotifier) sendMail(subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.From)
	m.SetHeader("To", n.cfg.To)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	d := gomail.NewDialer(n.cfg.SMTPHost, n.cfg.SMTPPort, n.cfg.SMTPUser, n.cfg.SMTPPass)
	return d.DialAndSend(m)
}
