package main

import (
	"context"
	"encoding/base64"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"frostgreet/internal/config"
	"frostgreet/internal/util"
	"frostgreet/pkg/authclient"
	"frostgreet/pkg/conversation"
	"frostgreet/pkg/domain"
	"frostgreet/pkg/events"
	"frostgreet/pkg/genclient"
	"frostgreet/pkg/history"
	"frostgreet/pkg/session"
	"frostgreet/pkg/storage"
)

func main() {
	configPath := flag.String("config", config.ConfigPath, "path to config file")
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	util.InitLogger(cfg.LogLevel)

	orch, cleanup, err := buildOrchestrator(cfg)
	if err != nil {
		log.Fatalf("failed to init client: %v", err)
	}
	defer cleanup()

	ctx := context.Background()
	if err := run(ctx, orch, args[0], args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: frostgreet [-config path] <command> [flags]

commands:
  login     -email ... -password ...
  register  -username ... -email ... -password ... -password2 ... [-first-name ...]
  logout
  whoami
  text      -prompt "..." [-refine "..."]
  image     -file photo.jpg [-template santa|tree|custom] [-text "..."]
  video     -prompt "..."`)
}

func buildOrchestrator(cfg config.FileConfig) (*conversation.Orchestrator, func(), error) {
	var sessions session.Store
	var err error
	if cfg.RedisAddr != "" {
		sessions = session.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, "")
	} else {
		sessions, err = session.NewFileStore(cfg.SessionPath)
		if err != nil {
			return nil, nil, err
		}
	}

	genOpts := []genclient.Option{}
	if cfg.ImageEncoding != "" {
		genOpts = append(genOpts, genclient.WithImageEncoding(genclient.ImageEncoding(cfg.ImageEncoding)))
	}
	videoTimeout, err := config.ParseVideoTimeout(cfg.VideoTimeout)
	if err != nil {
		return nil, nil, err
	}
	if videoTimeout > 0 {
		genOpts = append(genOpts, genclient.WithVideoTimeout(videoTimeout))
	}

	orchCfg := conversation.Config{
		Auth:      authclient.NewClient(cfg.APIBaseURL, sessions),
		Generator: genclient.NewClient(cfg.APIBaseURL, genOpts...),
		Sessions:  sessions,
	}
	cleanup := func() {}
	if cfg.DatabaseURL != "" {
		archive, err := history.NewArchive(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		orchCfg.Archive = archive
	}
	if cfg.AMQPURL != "" {
		publisher, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return nil, nil, err
		}
		orchCfg.Publisher = publisher
		cleanup = func() {
			if err := publisher.Close(); err != nil {
				slog.Warn("close publisher", "err", err)
			}
		}
	}
	if cfg.MinioEndpoint != "" {
		media, err := storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccess, cfg.MinioSecret, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			return nil, nil, err
		}
		orchCfg.Media = media
	}

	orch, err := conversation.New(orchCfg)
	if err != nil {
		return nil, nil, err
	}
	return orch, cleanup, nil
}

func run(ctx context.Context, orch *conversation.Orchestrator, command string, args []string) error {
	switch command {
	case "login":
		return runLogin(ctx, orch, args)
	case "register":
		return runRegister(ctx, orch, args)
	case "logout":
		if err := orch.Logout(ctx); err != nil {
			return err
		}
		fmt.Println("logged out")
		return nil
	case "whoami":
		sess := orch.Session()
		if !sess.Authenticated() {
			fmt.Println("not logged in")
			return nil
		}
		fmt.Printf("%s <%s>\n", sess.User.Username, sess.User.Email)
		return nil
	case "text":
		return runText(ctx, orch, args)
	case "image":
		return runImage(ctx, orch, args)
	case "video":
		return runVideo(ctx, orch, args)
	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func runLogin(ctx context.Context, orch *conversation.Orchestrator, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	_ = fs.Parse(args)
	sess, err := orch.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	fmt.Printf("logged in as %s\n", sess.User.Email)
	return nil
}

func runRegister(ctx context.Context, orch *conversation.Orchestrator, args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	username := fs.String("username", "", "user name (min 3 characters)")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "password (min 8 characters)")
	password2 := fs.String("password2", "", "password confirmation")
	firstName := fs.String("first-name", "", "optional first name")
	_ = fs.Parse(args)
	sess, err := orch.Register(ctx, authclient.RegisterInput{
		Username:  *username,
		Email:     *email,
		Password:  *password,
		Password2: *password2,
		FirstName: *firstName,
	})
	if err != nil {
		return err
	}
	fmt.Printf("registered as %s\n", sess.User.Email)
	return nil
}

func runText(ctx context.Context, orch *conversation.Orchestrator, args []string) error {
	fs := flag.NewFlagSet("text", flag.ExitOnError)
	prompt := fs.String("prompt", "", "greeting description")
	refine := fs.String("refine", "", "optional follow-up refinement")
	_ = fs.Parse(args)

	conv := orch.StartConversation(domain.KindText)
	out, err := conv.Generate(ctx, conversation.Prompt{Message: *prompt})
	if err != nil {
		return err
	}
	fmt.Println(out.Text)
	if *refine == "" {
		return nil
	}
	out, err = conv.Regenerate(ctx, conversation.Prompt{Message: *refine})
	if err != nil {
		return err
	}
	fmt.Println("---")
	fmt.Println(out.Text)
	return nil
}

func runImage(ctx context.Context, orch *conversation.Orchestrator, args []string) error {
	fs := flag.NewFlagSet("image", flag.ExitOnError)
	file := fs.String("file", "", "input picture (max 5 MB)")
	template := fs.String("template", string(domain.TemplateSanta), "card template: santa, tree, or custom")
	text := fs.String("text", "", "editing instructions")
	outPath := fs.String("out", "", "where to write the result (default alongside input)")
	_ = fs.Parse(args)

	data, err := os.ReadFile(*file)
	if err != nil {
		return fmt.Errorf("read input image: %w", err)
	}
	format := mime.TypeByExtension(filepath.Ext(*file))
	if !strings.HasPrefix(format, "image/") {
		format = "image/png"
	}
	conv := orch.StartConversation(domain.KindImage)
	out, err := conv.Generate(ctx, conversation.Prompt{Image: &domain.ImagePayload{
		Template: domain.ImageTemplate(*template),
		Text:     *text,
		Data:     data,
		Format:   format,
	}})
	if err != nil {
		return err
	}
	result, err := base64.StdEncoding.DecodeString(out.ImageBase64)
	if err != nil {
		return fmt.Errorf("decode result image: %w", err)
	}
	target := *outPath
	if target == "" {
		target = strings.TrimSuffix(*file, filepath.Ext(*file)) + ".greeting.png"
	}
	if err := os.WriteFile(target, result, 0o644); err != nil {
		return fmt.Errorf("write result image: %w", err)
	}
	fmt.Println("saved", target)
	return nil
}

func runVideo(ctx context.Context, orch *conversation.Orchestrator, args []string) error {
	fs := flag.NewFlagSet("video", flag.ExitOnError)
	prompt := fs.String("prompt", "", "video description")
	_ = fs.Parse(args)

	conv := orch.StartConversation(domain.KindVideo)
	fmt.Fprintln(os.Stderr, "rendering video, this can take a few minutes...")
	out, err := conv.Generate(ctx, conversation.Prompt{Message: *prompt})
	if err != nil {
		return err
	}
	fmt.Println(out.VideoURL)
	return nil
}
