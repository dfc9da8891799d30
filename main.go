package main

import (
	"context"
	"fmt"
	"inpaintui/internal/appinpaint"
	"os"
)

func main() {
	app, err := appinpaint.NewInpaintApp()
	if err != nil {
		panic(fmt.Sprintf("Can not create application: %v", err))
	}

	err = app.Start(context.Background())
	app.Stop()
	if err != nil {
		os.Exit(1)
	}
}
