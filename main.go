package main

import (
	"os"

	"github.com/sirupsen/logrus"

	"github.com/notargets/meshadapt/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}
