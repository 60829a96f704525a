package main

import (
	"log"
	"os"

	_ "github.com/ripixel/fitglue-community/functions/comments"  // Import function/init
	_ "github.com/ripixel/fitglue-community/functions/feed"      // Import function/init
	_ "github.com/ripixel/fitglue-community/functions/notifier"  // Import function/init
	_ "github.com/ripixel/fitglue-community/functions/reactions" // Import function/init

	"github.com/GoogleCloudPlatform/functions-framework-go/funcframework"
)

func main() {
	port := "8080"
	if envPort := os.Getenv("PORT"); envPort != "" {
		port = envPort
	}
	if err := funcframework.Start(port); err != nil {
		log.Fatalf("funcframework.Start: %v\n", err)
	}
}
