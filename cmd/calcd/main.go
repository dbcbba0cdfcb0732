package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"calcgo/pkg/server"
)

func main() {
	// .env is optional; real deployments set the environment directly
	if err := godotenv.Load(); err == nil {
		log.Println("loaded configuration from .env")
	}

	secret := os.Getenv("CALC_SECRET")
	if secret == "" {
		log.Fatal("CALC_SECRET must be set")
	}

	user := os.Getenv("CALC_USER")
	pass := os.Getenv("CALC_PASS")
	if user == "" || pass == "" {
		log.Fatal("CALC_USER and CALC_PASS must be set")
	}
	hash, err := server.HashPassword(pass)
	if err != nil {
		log.Fatalf("hashing password: %v", err)
	}

	s := server.New(secret, map[string]string{user: hash})

	if expr := os.Getenv("ALARM_EXPR"); expr != "" {
		port, err := strconv.Atoi(os.Getenv("SMTP_PORT"))
		if err != nil {
			log.Fatal("SMTP_PORT must be an integer when ALARM_EXPR is set")
		}
		alarm, err := server.NewAlarmNotifier(server.AlarmConfig{
			Expr:     expr,
			SMTPHost: os.Getenv("SMTP_HOST"),
			SMTPPort: port,
			SMTPUser: os.Getenv("SMTP_USER"),
			SMTPPass: os.Getenv("SMTP_PASS"),
			From:     os.Getenv("ALARM_FROM"),
			To:       os.Getenv("ALARM_TO"),
		})
		if err != nil {
			log.Fatalf("alarm setup: %v", err)
		}
		s.Alarm = alarm
		log.Printf("alarm armed on condition %q", expr)
	}

	addr := os.Getenv("CALC_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	fmt.Printf("calcd listening on %s\n", addr)
	fmt.Println("  POST /auth  issue a token")
	fmt.Println("  POST /eval  evaluate one expression")
	fmt.Println("  GET  /calc  websocket evaluation session")
	log.Fatal(http.ListenAndServe(addr, s.Handler()))
}
