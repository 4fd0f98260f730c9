package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/urfave/cli/v3"
)

func main() {
	app := &cli.Command{
		Name:  "simulator",
		Usage: "Development tool for exercising the catalog API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "api-url",
				Usage:   "Backend API URL",
				Value:   "http://localhost:3000",
				Sources: cli.EnvVars("API_URL"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "seed",
				Usage: "Log in as admin and upload local titles",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "count", Value: 5, Usage: "Number of titles to upload"},
					&cli.StringFlag{Name: "admin-email", Value: "admin@kaf.local", Sources: cli.EnvVars("ADMIN_EMAIL")},
					&cli.StringFlag{Name: "admin-password", Value: "admin123", Sources: cli.EnvVars("ADMIN_PASSWORD")},
				},
				Action: seedCmd,
			},
			{
				Name:  "watchlist",
				Usage: "Hammer one user's watchlist from many goroutines and check nothing was lost",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "workers", Value: 20, Usage: "Number of concurrent adds"},
				},
				Action: watchlistCmd,
			},
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func seedCmd(ctx context.Context, cmd *cli.Command) error {
	count := cmd.Int("count")
	client := NewAPIClient(cmd.String("api-url"))

	fmt.Println("=== Catalog Simulator: Seed ===")
	fmt.Println()

	fmt.Print("Logging in as admin... ")
	admin, token, err := client.Login(cmd.String("admin-email"), cmd.String("admin-password"))
	if err != nil {
		fmt.Println("FAILED")
		return err
	}
	fmt.Printf("OK (user: %s, role: %s)\n", admin.Email, admin.Role)

	genres := []string{"Drama, Crime", "Comedy", "Sci-Fi, Thriller", "Documentary", "Animation, Family"}
	for i := 0; i < count; i++ {
		title := fmt.Sprintf("Simulated Title %d", i+1)
		movie, err := client.UploadTitle(token, title, 1990+i, genres[i%len(genres)])
		if err != nil {
			return fmt.Errorf("upload %d/%d: %w", i+1, count, err)
		}
		fmt.Printf("  [%d/%d] %s (%s)\n", i+1, count, movie.Title, movie.ID)
	}

	catalog, err := client.Combined(1)
	if err != nil {
		return fmt.Errorf("failed to fetch combined catalog: %w", err)
	}

	fmt.Println()
	fmt.Println("=========================================")
	fmt.Printf("  CATALOG: %d local, %d remote\n", len(catalog.Local), len(catalog.Remote))
	fmt.Println("=========================================")
	return nil
}

func watchlistCmd(ctx context.Context, cmd *cli.Command) error {
	workers := cmd.Int("workers")
	if workers < 2 {
		return fmt.Errorf("--workers must be at least 2")
	}

	client := NewAPIClient(cmd.String("api-url"))

	fmt.Println("=== Catalog Simulator: Watchlist ===")
	fmt.Println()

	fmt.Print("Registering user... ")
	user, token, err := client.RegisterUser("Watcher")
	if err != nil {
		fmt.Println("FAILED")
		return err
	}
	fmt.Printf("OK (%s)\n", user.Email)

	items := make([]ItemRef, workers)
	for i := range items {
		items[i] = ItemRef{Provider: "remote", ID: strconv.Itoa(1000 + i)}
	}

	fmt.Printf("Adding %d items concurrently... ", len(items))
	if errs := runConcurrently(items, func(item ItemRef) error {
		_, err := client.AddToWatchlist(token, item)
		return err
	}); len(errs) > 0 {
		fmt.Println("FAILED")
		return fmt.Errorf("%d errors, first: %w", len(errs), errs[0])
	}
	fmt.Println("OK")

	removed := items[:len(items)/2]
	fmt.Printf("Removing %d items concurrently... ", len(removed))
	if errs := runConcurrently(removed, func(item ItemRef) error {
		_, err := client.RemoveFromWatchlist(token, item)
		return err
	}); len(errs) > 0 {
		fmt.Println("FAILED")
		return fmt.Errorf("%d errors, first: %w", len(errs), errs[0])
	}
	fmt.Println("OK")

	final, err := client.Watchlist(token)
	if err != nil {
		return fmt.Errorf("failed to read watchlist: %w", err)
	}

	want := len(items) - len(removed)
	fmt.Println()
	fmt.Println("=========================================")
	if len(final) != want {
		fmt.Printf("  LOST UPDATES: have %d items, want %d\n", len(final), want)
		fmt.Println("=========================================")
		return fmt.Errorf("lost %d watchlist updates", want-len(final))
	}
	fmt.Printf("  WATCHLIST CONSISTENT: %d items\n", len(final))
	fmt.Println("=========================================")
	return nil
}

func runConcurrently(items []ItemRef, fn func(ItemRef) error) []error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, item := range items {
		wg.Add(1)
		go func(item ItemRef) {
			defer wg.Done()
			if err := fn(item); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(item)
	}
	wg.Wait()
	return errs
}
