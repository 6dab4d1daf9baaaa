package main

import (
	// standard library
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"strings"

	// third-party
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	// internal
	"github.com/bucketpilot/bucketpilot/internal/auth"
	"github.com/bucketpilot/bucketpilot/internal/config"
	"github.com/bucketpilot/bucketpilot/internal/handlers"
	"github.com/bucketpilot/bucketpilot/internal/logging"
	"github.com/bucketpilot/bucketpilot/internal/version"
)

//go:embed ui/static
var embeddedUI embed.FS

func main() {
	// Load .env if present
	_ = godotenv.Load()

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version":
			fmt.Println(version.String())
			os.Exit(0)
		case "hashpw":
			// Interactive password hashing flow for AUTH_PASSWORD
			if err := runHashPassword(); err != nil {
				fmt.Fprintf(os.Stderr, "hashpw failed: %v\n", err)
				os.Exit(1)
			}
			os.Exit(0)
		}
	}

	logging.Logf("[SERVER] %s", version.String())

	buckets, err := config.LoadBuckets()
	if err != nil {
		logging.Fatalf("[CONFIG] %v", err)
	}
	for _, b := range buckets {
		logging.Logf("[CONFIG] Bucket %s (%s, provider=%s)", b.ID, b.Name, b.Provider)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}
	addr := ":" + port

	uiFS, err := fs.Sub(embeddedUI, "ui/static")
	if err != nil {
		logging.Fatalf("[UI] embed error: %v", err)
	}

	if mode, ok := os.LookupEnv("GIN_MODE"); ok {
		gin.SetMode(mode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": version.Get()})
	})

	// Auth endpoints (always available)
	router.POST("/api/auth/login", auth.LoginHandler)
	router.POST("/api/auth/logout", auth.LogoutHandler)
	router.GET("/api/auth/check", auth.CheckAuthHandler)

	router.GET("/api/config", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"apiUrl":        "/api/",
			"authEnabled":   auth.Enabled(),
			"apiKeyEnabled": os.Getenv("API_KEY") != "",
		})
	})

	// Protected API endpoints (require auth if configured)
	protected := router.Group("/api")
	if auth.Enabled() {
		protected.Use(auth.Middleware())
	}
	handlers.NewAPI(buckets).Register(protected)

	// File server for all embedded files (gate behind DISABLE_UI)
	if os.Getenv("DISABLE_UI") == "" {
		router.NoRoute(func(c *gin.Context) {
			p := strings.TrimPrefix(c.Request.URL.Path, "/")
			if p == "" {
				p = "index.html"
			}

			if stat, err := fs.Stat(uiFS, p); err != nil || stat.IsDir() {
				p = "index.html"
			}

			http.ServeFileFS(c.Writer, c.Request, uiFS, p)
		})
	} else {
		logging.Logf("[UI] DISABLE_UI is set → running in API-only mode (no UI).")
		router.NoRoute(func(c *gin.Context) {
			c.AbortWithStatus(http.StatusNotFound)
		})
	}

	logging.Logf("[SERVER] Listening on %s…", addr)
	logging.Fatalf("%v", http.ListenAndServe(addr, router))
}

// runHashPassword reads a password from the terminal and prints a bcrypt
// hash suitable for the AUTH_PASSWORD environment variable.
func runHashPassword() error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return fmt.Errorf("no TTY detected; run hashpw in an interactive shell")
	}

	fmt.Fprint(os.Stderr, "Password: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("could not read password: %w", err)
	}
	if len(password) == 0 {
		return fmt.Errorf("empty password")
	}

	hash, err := bcrypt.GenerateFromPassword(password, bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("could not hash password: %w", err)
	}

	fmt.Println(string(hash))
	return nil
}
