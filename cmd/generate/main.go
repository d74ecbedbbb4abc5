package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"golang.org/x/text/language"

	"caslastudio/internal/imagegen"
	"caslastudio/internal/infra"
	"caslastudio/internal/storage"
	"caslastudio/internal/studio"
)

func main() {
	_ = godotenv.Load()

	var (
		modeFlag       string
		promptFlag     string
		sizeFlag       string
		customSizeFlag string
		imageFlag      string
		positionFlag   string
		outFlag        string
		baseFlag       string
		localeFlag     string
		timeoutFlag    time.Duration
		products       []string
	)
	flag.StringVar(&modeFlag, "mode", string(studio.ModeTextToImage), "text2img or img2img")
	flag.StringVar(&promptFlag, "prompt", "", "description for text2img")
	flag.StringVar(&sizeFlag, "size", string(studio.SizePreset1024x768), "1024x768 or custom")
	flag.StringVar(&customSizeFlag, "custom-size", "", "WIDTHxHEIGHT when -size=custom")
	flag.StringVar(&imageFlag, "image", "", "source photograph for img2img")
	flag.StringVar(&positionFlag, "position", "", "where the product goes in the photograph (img2img)")
	flag.StringVar(&outFlag, "out", ".", "directory for the generated image")
	flag.StringVar(&baseFlag, "base", os.Getenv("GENERATION_API_URL"), "generation service base URL")
	flag.StringVar(&localeFlag, "locale", "vi", "language for error messages (vi or en)")
	flag.DurationVar(&timeoutFlag, "timeout", 6*time.Minute, "request timeout")
	flag.Func("product", "product code, repeatable (e.g. \"C1012 Glacier White\")", func(v string) error {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("empty product code")
		}
		products = append(products, v)
		return nil
	})
	flag.Parse()

	locale := language.Make(localeFlag)

	mode, err := studio.ParseMode(modeFlag)
	if err != nil {
		exit(err)
	}
	size, err := studio.ParseSizeChoice(sizeFlag)
	if err != nil {
		exit(err)
	}

	state := studio.NewState().
		SetMode(mode).
		SetPrompt(promptFlag).
		SetSizeChoice(size).
		SetCustomSize(customSizeFlag).
		SetPosition(positionFlag)
	for _, code := range products {
		state = state.ToggleProductCode(code)
	}
	if path := strings.TrimSpace(imageFlag); path != "" {
		upload, err := readUpload(path)
		if err != nil {
			exit(err)
		}
		state = state.SetUploadedImage(upload)
	}

	key := strings.TrimSpace(os.Getenv("API_KEY_TOKEN"))
	if key == "" {
		exit(fmt.Errorf("API_KEY_TOKEN is required"))
	}

	dir, err := storage.NewResultDir(outFlag)
	if err != nil {
		exit(err)
	}

	logger := infra.NewLogger("cli").With().Str("cmd", "generate").Str("mode", string(mode)).Logger()
	client := imagegen.NewClient(imagegen.Options{BaseURL: baseFlag, Timeout: timeoutFlag})
	sess := studio.NewSession(studio.SessionOptions{
		ID:      uuid.NewString(),
		Sender:  client,
		Builder: studio.NewBuilder(key),
		Logger:  logger,
	})
	defer sess.Close()
	sess.Update(func(studio.State) studio.State { return state })

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	attempt, err := sess.Submit(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, studio.Message(locale, err))
		os.Exit(2)
	}
	logger.Info().Str("url", client.BaseURL()+mode.Path()).Msg("generation submitted")

	if _, err := attempt.Wait(ctx); err != nil {
		fmt.Fprintln(os.Stderr, studio.Message(locale, err))
		os.Exit(1)
	}

	res, ok := sess.Result()
	if !ok {
		exit(fmt.Errorf("no result returned"))
	}
	path, err := dir.Save(ctx, "generated_image", res.ContentType, res.Data)
	if err != nil {
		exit(err)
	}
	logger.Info().Str("path", path).Int("bytes", len(res.Data)).Msg("image saved")
	fmt.Println(path)
}

func readUpload(path string) (*studio.Upload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return &studio.Upload{
		Filename:    filepath.Base(path),
		ContentType: http.DetectContentType(data),
		Data:        data,
	}, nil
}

func exit(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
