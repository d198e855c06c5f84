package cmd

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/huh/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")).MarginBottom(1)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
)

const defaultConfigYAML = `speech:
  provider: elevenlabs

narration:
  max_chars: 4096
  workers: 3

transcription:
  backends: [whisper-api, whisper-cpp]
  # whisper_cpp_model: ./models/ggml-base.en.bin

timeline:
  topic_display: 8

overlay:
  font_file: ./assets/fonts/Inter-Bold.ttf

video:
  image_dir: ./assets/images
  output_dir: ./output
  resolution: 1080x1920
  compose_timeout: 10m

music:
  enabled: false
  dir: ./assets/music

gcs:
  enabled: false
`

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard for Newsreel",
	Long:  `Check media tools, create asset directories, write a starter config and configure API keys.`,
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	fmt.Println(titleStyle.Render("🎬 Newsreel Setup"))

	steps := []struct {
		name string
		fn   func() error
	}{
		{"Checking tools", checkTools},
		{"Creating directories", createDirectories},
		{"Writing config", writeDefaultConfig},
		{"Configuring environment", configureEnv},
	}

	for _, step := range steps {
		if err := step.fn(); err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
	}

	return nil
}

func checkTools() error {
	if !commandExists("ffmpeg") || !commandExists("ffprobe") {
		var install bool
		err := huh.NewConfirm().
			Title("ffmpeg not found").
			Description("ffmpeg and ffprobe are required to stitch audio and compose videos. Install now?").
			Affirmative("Yes").
			Negative("No").
			Value(&install).
			Run()
		if err != nil {
			return err
		}

		if !install {
			return fmt.Errorf("ffmpeg is required - install from https://ffmpeg.org/download.html")
		}

		if err := installFFmpeg(); err != nil {
			return err
		}
	} else {
		fmt.Println(successStyle.Render("✓ Found ffmpeg"))
	}

	if !commandExists("whisper-cli") {
		fmt.Println(warnStyle.Render("whisper-cli not found - local transcription disabled, the whisper API or estimated timings will be used"))
	}
	return nil
}

func installFFmpeg() error {
	return runWithSpinner("Installing ffmpeg", func() error {
		switch runtime.GOOS {
		case "darwin":
			return runSetupCmd("brew", "install", "ffmpeg")
		case "linux":
			return runSetupCmd("sh", "-c", "sudo apt-get install -y ffmpeg")
		default:
			return fmt.Errorf("unsupported OS: %s", runtime.GOOS)
		}
	})
}

func createDirectories() error {
	dirs := []string{"assets/images", "assets/music", "assets/fonts", "output"}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	fmt.Println(successStyle.Render("✓ Created directories"))
	return nil
}

func writeDefaultConfig() error {
	if _, err := os.Stat(configPath); err == nil {
		fmt.Println(infoStyle.Render("Kept existing " + configPath))
		return nil
	}
	if err := os.WriteFile(configPath, []byte(defaultConfigYAML), 0644); err != nil {
		return err
	}
	fmt.Println(successStyle.Render("✓ Created " + configPath))
	return nil
}

func configureEnv() error {
	if _, err := os.Stat(".env"); err == nil {
		var overwrite bool
		if err := huh.NewConfirm().
			Title("Found existing .env file").
			Description("Overwrite?").
			Value(&overwrite).
			Run(); err != nil {
			return err
		}
		if !overwrite {
			fmt.Println(infoStyle.Render("Kept existing .env"))
			return nil
		}
	}

	env := make(map[string]string)

	if err := configureGCP(env); err != nil {
		return err
	}

	if err := configureRequiredKeys(env); err != nil {
		return err
	}

	if err := configureOptionalKeys(env); err != nil {
		return err
	}

	return writeEnvFile(env)
}

func configureGCP(env map[string]string) error {
	var setupGCP bool
	if err := huh.NewConfirm().
		Title("Setup Google Cloud?").
		Description("Used for bucket images, video uploads and Secret Manager API keys").
		Value(&setupGCP).
		Run(); err != nil {
		return err
	}

	if !setupGCP {
		return nil
	}

	if !commandExists("gcloud") {
		fmt.Println(warnStyle.Render("gcloud CLI not found - install from https://cloud.google.com/sdk/docs/install"))
		return nil
	}

	project, err := getOrCreateGCPProject()
	if err != nil {
		fmt.Println(warnStyle.Render(fmt.Sprintf("GCP setup skipped: %v", err)))
		return nil
	}

	env["GOOGLE_CLOUD_PROJECT"] = project

	if err := enableGCPAPIs(project); err != nil {
		fmt.Println(warnStyle.Render(fmt.Sprintf("API enablement failed: %v", err)))
	}

	if err := setupBucket(env, project); err != nil {
		fmt.Println(warnStyle.Render(fmt.Sprintf("Bucket setup skipped: %v", err)))
	}

	return nil
}

func getOrCreateGCPProject() (string, error) {
	existing := getActiveProject()

	var choice string
	options := []huh.Option[string]{
		huh.NewOption("Create new project", "new"),
	}

	if existing != "" {
		options = append([]huh.Option[string]{
			huh.NewOption(fmt.Sprintf("Use current: %s", existing), existing),
		}, options...)
	}

	options = append(options, huh.NewOption("Enter project ID manually", "manual"))

	if err := huh.NewSelect[string]().
		Title("Google Cloud Project").
		Options(options...).
		Value(&choice).
		Run(); err != nil {
		return "", err
	}

	switch choice {
	case "new":
		return createGCPProject()
	case "manual":
		var projectID string
		if err := huh.NewInput().
			Title("Project ID").
			Value(&projectID).
			Run(); err != nil {
			return "", err
		}
		return strings.TrimSpace(projectID), nil
	default:
		return choice, nil
	}
}

func getActiveProject() string {
	out, err := exec.Command("gcloud", "config", "get-value", "project").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

func createGCPProject() (string, error) {
	var projectID string
	if err := huh.NewInput().
		Title("New Project ID").
		Description("Must be globally unique, 6-30 chars, lowercase letters, digits, hyphens").
		Placeholder("newsreel-12345").
		Value(&projectID).
		Validate(func(s string) error {
			if len(s) < 6 || len(s) > 30 {
				return fmt.Errorf("must be 6-30 characters")
			}
			return nil
		}).
		Run(); err != nil {
		return "", err
	}

	err := runWithSpinner("Creating project", func() error {
		return runSetupCmd("gcloud", "projects", "create", projectID)
	})
	if err != nil {
		return "", err
	}

	_ = runSetupCmd("gcloud", "config", "set", "project", projectID)

	return projectID, nil
}

func enableGCPAPIs(project string) error {
	apis := []string{
		"storage.googleapis.com",
		"secretmanager.googleapis.com",
	}

	return runWithSpinner("Enabling APIs", func() error {
		args := append([]string{"services", "enable"}, apis...)
		args = append(args, "--project", project)
		return runSetupCmd("gcloud", args...)
	})
}

func setupBucket(env map[string]string, project string) error {
	var bucket string
	if err := huh.NewInput().
		Title("GCS bucket").
		Description("Holds base images under images/ and finished videos under videos/ (leave empty to skip)").
		Placeholder(project + "-newsreel").
		Value(&bucket).
		Run(); err != nil {
		return err
	}

	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil
	}

	if err := runWithSpinner("Creating bucket", func() error {
		return runSetupCmd("gcloud", "storage", "buckets", "create", "gs://"+bucket, "--project", project)
	}); err != nil {
		fmt.Println(warnStyle.Render("Bucket may already exist, using it anyway"))
	}

	env["GCS_BUCKET"] = bucket
	fmt.Println(infoStyle.Render("Set gcs.enabled: true in " + configPath + " to use the bucket"))
	return nil
}

func configureRequiredKeys(env map[string]string) error {
	var elevenKey string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("ElevenLabs API Key").
				Description("https://elevenlabs.io/app/settings/api-keys").
				Value(&elevenKey).
				Validate(required("ElevenLabs API Key")),
		),
	)

	if err := form.Run(); err != nil {
		return err
	}

	env["ELEVENLABS_API_KEY"] = strings.TrimSpace(elevenKey)
	return nil
}

func configureOptionalKeys(env map[string]string) error {
	var setup bool
	if err := huh.NewConfirm().
		Title("Setup OpenAI Whisper?").
		Description("Word timestamps from the whisper API (optional)").
		Value(&setup).
		Run(); err != nil {
		return err
	}

	if !setup {
		return nil
	}

	var apiKey string
	if err := huh.NewInput().
		Title("OpenAI API Key").
		Description("https://platform.openai.com/api-keys").
		EchoMode(huh.EchoModePassword).
		Value(&apiKey).
		Run(); err != nil {
		return err
	}

	apiKey = strings.TrimSpace(apiKey)
	if apiKey != "" {
		env["OPENAI_API_KEY"] = apiKey
	}
	return nil
}

func writeEnvFile(env map[string]string) error {
	f, err := os.Create(".env")
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	order := []string{
		"GOOGLE_CLOUD_PROJECT",
		"GCS_BUCKET",
		"ELEVENLABS_API_KEY",
		"OPENAI_API_KEY",
	}

	for _, key := range order {
		if val, ok := env[key]; ok && val != "" {
			_, _ = fmt.Fprintf(f, "%s=%s\n", key, val)
		}
	}

	fmt.Println(successStyle.Render("✓ Created .env file"))
	printNextSteps()
	return nil
}

func printNextSteps() {
	fmt.Println()
	fmt.Println(titleStyle.Render("Next steps:"))
	fmt.Println("  1. Add base images to: assets/images/")
	fmt.Println("  2. Add an overlay font to: assets/fonts/Inter-Bold.ttf")
	fmt.Println("  3. Add music (optional) to: assets/music/")
	fmt.Println("  4. Run: newsreel render job.yaml")
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func commandExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func runSetupCmd(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %s", err, stderr.String())
	}
	return nil
}

func runWithSpinner(title string, fn func() error) error {
	var err error
	_ = spinner.New().
		Title(title).
		Action(func() { err = fn() }).
		Run()
	if err != nil {
		return err
	}
	fmt.Println(successStyle.Render("✓ " + title))
	return nil
}
