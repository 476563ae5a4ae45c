package main

import (
	"github.com/ChimeraCapital420/Tagnetiq-PROD-sub002/internal/bootstrap"
)

func main() {
	bootstrap.Run()
}
