package main

import (
	"fmt"

	"github.com/duonguwu/notification-bot/server"
)

func main() {
	s := server.NewServer()
	s.Start(fmt.Sprintf("%s:%d", s.Config.Server.Host, s.Config.Server.Port))
}
