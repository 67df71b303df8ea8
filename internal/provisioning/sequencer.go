package provisioning

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/aniongithub/balena-cli/internal/answers"
	"github.com/aniongithub/balena-cli/internal/api"
	"github.com/aniongithub/balena-cli/internal/deviceconfig"
	"github.com/aniongithub/balena-cli/internal/devicetype"
	"github.com/aniongithub/balena-cli/internal/image"
)

// API is the subset of the balena API the sequencer needs.
type API interface {
	GetDevice(ctx context.Context, uuid string) (*api.Device, error)
	GetApplication(ctx context.Context, slug string) (*api.Application, error)
	GetDeviceTypeManifest(ctx context.Context, slug string) (*devicetype.Manifest, error)
	GenerateDeviceKey(ctx context.Context, uuid string) (string, error)
}

// ManifestProvider resolves the device-type manifest for a run, image copy
// first.
type ManifestProvider interface {
	GetManifest(ctx context.Context, imagePath, slug string) (*devicetype.Manifest, error)
}

// VersionResolver picks the OS version for a run from the request, the image
// metadata, and the device type's published versions.
type VersionResolver interface {
	Resolve(ctx context.Context, imagePath, requested string, m *devicetype.Manifest) (string, error)
}

// Prompter collects answers for the questions no source resolved. Only
// invoked for unanswered names.
type Prompter interface {
	Ask(ctx context.Context, questions []devicetype.Option) (map[string]any, error)
}

// ConfigGenerator produces config descriptors from the target and resolved
// answers.
type ConfigGenerator interface {
	GenerateDevice(dev *api.Device, apiKey string, r answers.Resolved) (deviceconfig.Descriptor, error)
	GenerateApplication(app *api.Application, r answers.Resolved) (deviceconfig.Descriptor, error)
}

// Target is the device or fleet an image is provisioned for. Exactly one
// field is set.
type Target struct {
	Device      *api.Device
	Application *api.Application
}

// DeviceType returns the target's declared device type slug.
func (t Target) DeviceType() string {
	if t.Device != nil {
		return t.Device.DeviceType
	}
	return t.Application.DeviceType
}

// Request describes one provisioning run.
type Request struct {
	// ImagePath is the local disk image to provision.
	ImagePath string

	// DeviceUUID and FleetSlug select the target; exactly one must be set.
	DeviceUUID string
	FleetSlug  string

	// DeviceTypeOverride provisions a fleet image for a compatible device
	// type other than the fleet's default. Only valid with FleetSlug.
	DeviceTypeOverride string

	// Version is the requested OS version: exact, a range, or
	// default/latest/recommended. Empty falls back to the image's own
	// version.
	Version string

	// ConfigPath is an optional pre-generated config descriptor file. It is
	// both an answer source and, when non-empty, the descriptor itself.
	ConfigPath string

	// SystemConnections are local connection-profile files injected into the
	// image in this order.
	SystemConnections []string

	// ConfigFlags holds raw config-* flag values keyed by flag name.
	ConfigFlags map[string]string

	// Advanced exposes advanced questions instead of answering them from
	// manifest defaults.
	Advanced bool

	// Interactive allows prompting for unanswered questions.
	Interactive bool

	// DeprecatedApplicationFlag records that the target was selected with the
	// deprecated --application flag; emits a warning diagnostic.
	DeprecatedApplicationFlag bool
}

// Result reports what a completed run wrote.
type Result struct {
	DeviceType     string
	Version        string
	ConfigLocation image.Location
	Written        []image.Location
}

// Sequencer drives a provisioning run through its fixed state sequence. All
// collaborators are injected; the sequencer performs no direct terminal
// output and one operation at a time.
type Sequencer struct {
	api       API
	manifests ManifestProvider
	versions  VersionResolver
	prompter  Prompter
	generator ConfigGenerator
	writer    image.Writer
	events    EventSink

	// readFile reads local supplementary files; swapped in tests.
	readFile func(string) ([]byte, error)
}

// Deps are the collaborators a Sequencer runs with.
type Deps struct {
	API       API
	Manifests ManifestProvider
	Versions  VersionResolver
	Prompter  Prompter
	Generator ConfigGenerator
	Writer    image.Writer
	Events    EventSink
}

// New returns a Sequencer using the given collaborators.
func New(deps Deps) *Sequencer {
	return &Sequencer{
		api:       deps.API,
		manifests: deps.Manifests,
		versions:  deps.Versions,
		prompter:  deps.Prompter,
		generator: deps.Generator,
		writer:    deps.Writer,
		events:    deps.Events,
		readFile:  os.ReadFile,
	}
}

// Run executes one provisioning run:
//
//	SelectTarget -> ValidateCompatibility -> ResolveManifest ->
//	LoadSuppliedConfig -> ResolveAnswers -> ResolveVersion ->
//	EnsureConfigDescriptor -> WriteConfigDescriptor ->
//	WriteSupplementaryFiles -> Done
//
// Any failure before the write phase aborts with the image untouched. A
// failure during the write phase aborts remaining writes and leaves the image
// as the prior writes produced it; there is no rollback.
func (s *Sequencer) Run(ctx context.Context, req Request) (*Result, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if req.DeprecatedApplicationFlag {
		s.warn("the --application flag is deprecated, use --fleet instead", nil)
	}

	target, err := s.selectTarget(ctx, req)
	if err != nil {
		return nil, err
	}

	slug := target.DeviceType()
	if req.DeviceTypeOverride != "" {
		if err := s.validateCompatibility(ctx, target.Application, req.DeviceTypeOverride); err != nil {
			return nil, err
		}
		slug = req.DeviceTypeOverride
	}

	m, err := s.manifests.GetManifest(ctx, req.ImagePath, slug)
	if err != nil {
		return nil, NewRetrievalError(fmt.Sprintf("failed to resolve manifest for %s", slug), err)
	}
	s.info("resolved device type manifest", map[string]string{"deviceType": slug})

	supplied, fileSource, err := s.loadSuppliedConfig(req)
	if err != nil {
		return nil, err
	}

	resolved, err := s.resolveAnswers(ctx, req, m, fileSource)
	if err != nil {
		return nil, err
	}

	version, err := s.versions.Resolve(ctx, req.ImagePath, req.Version, m)
	if err != nil {
		return nil, NewRetrievalError("failed to resolve OS version", err)
	}
	resolved.Merge(map[string]any{"version": version, "deviceType": slug})

	descriptor, err := s.ensureDescriptor(ctx, target, supplied, resolved)
	if err != nil {
		return nil, err
	}

	// Read supplementary files up front so a bad path aborts before any
	// image mutation.
	contents, err := s.readConnections(req.SystemConnections)
	if err != nil {
		return nil, err
	}

	result := &Result{
		DeviceType:     slug,
		Version:        version,
		ConfigLocation: image.ConfigLocation(m),
	}

	if err := s.writeDescriptor(ctx, req.ImagePath, result.ConfigLocation, descriptor); err != nil {
		return nil, err
	}
	result.Written = append(result.Written, result.ConfigLocation)

	written, err := s.writeConnections(ctx, req.ImagePath, req.SystemConnections, contents)
	result.Written = append(result.Written, written...)
	if err != nil {
		return result, err
	}

	return result, nil
}

// validateRequest enforces the mutually exclusive target selection before any
// network or file I/O happens.
func validateRequest(req Request) error {
	if req.ImagePath == "" {
		return NewUsageError("an image path is required")
	}
	if req.DeviceUUID != "" && req.FleetSlug != "" {
		return NewUsageError("--device and --fleet are mutually exclusive")
	}
	if req.DeviceUUID == "" && req.FleetSlug == "" {
		return NewUsageError("either --device or --fleet is required")
	}
	if req.DeviceUUID != "" {
		if req.DeviceTypeOverride != "" {
			return NewUsageError("--device-type is only valid with --fleet")
		}
		if !validDeviceUUID(req.DeviceUUID) {
			return NewUsageError(fmt.Sprintf("%q is not a valid device UUID", req.DeviceUUID))
		}
	}
	return nil
}

// validDeviceUUID accepts balena short/long hex UUIDs and canonical dashed
// UUIDs.
func validDeviceUUID(s string) bool {
	if strings.Contains(s, "-") {
		_, err := uuid.Parse(s)
		return err == nil
	}
	if len(s) != 32 && len(s) != 62 {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdef", r) {
			return false
		}
	}
	return true
}

func (s *Sequencer) selectTarget(ctx context.Context, req Request) (Target, error) {
	if req.DeviceUUID != "" {
		dev, err := s.api.GetDevice(ctx, normalizeUUID(req.DeviceUUID))
		if err != nil {
			return Target{}, NewRetrievalError(fmt.Sprintf("failed to fetch device %s", req.DeviceUUID), err)
		}
		s.info("provisioning for device", map[string]string{"uuid": dev.UUID})
		return Target{Device: dev}, nil
	}

	app, err := s.api.GetApplication(ctx, req.FleetSlug)
	if err != nil {
		return Target{}, NewRetrievalError(fmt.Sprintf("failed to fetch fleet %s", req.FleetSlug), err)
	}
	s.info("provisioning for fleet", map[string]string{"fleet": app.Slug})
	return Target{Application: app}, nil
}

// normalizeUUID strips dashes from canonical UUIDs; balena identifies devices
// by plain hex.
func normalizeUUID(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, "-", ""))
}

// validateCompatibility fails when the override device type cannot run the
// fleet's declared device type. It runs before the image manifest fetch so an
// incompatible override wastes no work.
func (s *Sequencer) validateCompatibility(ctx context.Context, app *api.Application, override string) error {
	if app == nil {
		return NewUsageError("--device-type is only valid with --fleet")
	}
	if override == app.DeviceType {
		return nil
	}

	appManifest, err := s.api.GetDeviceTypeManifest(ctx, app.DeviceType)
	if err != nil {
		return NewRetrievalError(fmt.Sprintf("failed to fetch device type %s", app.DeviceType), err)
	}
	overrideManifest, err := s.api.GetDeviceTypeManifest(ctx, override)
	if err != nil {
		return NewRetrievalError(fmt.Sprintf("failed to fetch device type %s", override), err)
	}

	if !devicetype.AreCompatible(overrideManifest, appManifest) {
		return NewCompatibilityError(
			fmt.Sprintf("device type %s is not compatible with fleet device type %s", override, app.DeviceType),
			devicetype.ErrIncompatibleDeviceType,
		)
	}
	return nil
}

// loadSuppliedConfig loads the optional pre-generated descriptor and its
// answer-source view. Elided when no config file was given.
func (s *Sequencer) loadSuppliedConfig(req Request) (deviceconfig.Descriptor, *answers.Source, error) {
	if req.ConfigPath == "" {
		return nil, nil, nil
	}

	descriptor, err := deviceconfig.Load(req.ConfigPath)
	if err != nil {
		return nil, nil, NewUsageError(fmt.Sprintf("invalid config file %s: %s", req.ConfigPath, err))
	}

	src, err := answers.FromFile(req.ConfigPath)
	if err != nil {
		return nil, nil, NewUsageError(fmt.Sprintf("invalid config file %s: %s", req.ConfigPath, err))
	}
	return descriptor, &src, nil
}

// resolveAnswers merges flag, file, and advanced-default sources in fixed
// precedence, then prompts for whatever stayed unanswered.
func (s *Sequencer) resolveAnswers(ctx context.Context, req Request, m *devicetype.Manifest, fileSource *answers.Source) (answers.Resolved, error) {
	sources := []answers.Source{answers.FromFlags(req.ConfigFlags)}
	if fileSource != nil && !fileSource.Empty() {
		sources = append(sources, *fileSource)
	}
	if !req.Advanced {
		sources = append(sources, answers.AdvancedDefaults(m))
	}

	names := devicetype.QuestionNames(m)
	resolved := answers.Resolve(names, sources)

	missing := resolved.Unanswered(names)
	if len(missing) == 0 {
		return resolved, nil
	}

	if !req.Interactive || s.prompter == nil {
		// Without a terminal the remaining questions fall back to their
		// manifest defaults; questions without one simply stay unset.
		resolved.Merge(defaultAnswers(m, missing))
		return resolved, nil
	}

	asked, err := s.prompter.Ask(ctx, unansweredQuestions(m, missing))
	if err != nil {
		return resolved, fmt.Errorf("interactive configuration failed: %w", err)
	}
	resolved.Merge(asked)
	return resolved, nil
}

// defaultAnswers returns the manifest-declared default for each named
// question that has one.
func defaultAnswers(m *devicetype.Manifest, names []string) map[string]any {
	wanted := make(map[string]struct{}, len(names))
	for _, n := range names {
		wanted[n] = struct{}{}
	}
	values := make(map[string]any)
	for _, q := range devicetype.Questions(m) {
		if _, ok := wanted[q.Name]; !ok || q.Default == nil {
			continue
		}
		delete(wanted, q.Name)
		values[q.Name] = q.Default
	}
	return values
}

// unansweredQuestions returns the manifest options behind the given names,
// preserving question order and skipping duplicate declarations.
func unansweredQuestions(m *devicetype.Manifest, names []string) []devicetype.Option {
	wanted := make(map[string]struct{}, len(names))
	for _, n := range names {
		wanted[n] = struct{}{}
	}
	var opts []devicetype.Option
	for _, q := range devicetype.Questions(m) {
		if _, ok := wanted[q.Name]; !ok {
			continue
		}
		delete(wanted, q.Name)
		opts = append(opts, q)
	}
	return opts
}

// ensureDescriptor uses a non-empty supplied descriptor verbatim; otherwise
// it generates one from the resolved answers and the target. Device targets
// need a freshly provisioned device API key.
func (s *Sequencer) ensureDescriptor(ctx context.Context, target Target, supplied deviceconfig.Descriptor, resolved answers.Resolved) (deviceconfig.Descriptor, error) {
	if !supplied.Empty() {
		if err := deviceconfig.Validate(supplied); err != nil {
			return nil, NewUsageError(err.Error())
		}
		s.info("using supplied config descriptor", nil)
		return supplied, nil
	}

	if target.Device != nil {
		key, err := s.api.GenerateDeviceKey(ctx, target.Device.UUID)
		if err != nil {
			return nil, NewRetrievalError(fmt.Sprintf("failed to provision a device key for %s", target.Device.UUID), err)
		}
		d, err := s.generator.GenerateDevice(target.Device, key, resolved)
		if err != nil {
			return nil, NewRetrievalError("failed to generate device config", err)
		}
		return d, nil
	}

	d, err := s.generator.GenerateApplication(target.Application, resolved)
	if err != nil {
		return nil, NewRetrievalError("failed to generate fleet config", err)
	}
	return d, nil
}

// readConnections reads every supplementary file before the write phase, so
// an unreadable path can never leave the image half written.
func (s *Sequencer) readConnections(paths []string) ([][]byte, error) {
	contents := make([][]byte, 0, len(paths))
	for _, p := range paths {
		data, err := s.readFile(p)
		if err != nil {
			return nil, NewUsageError(fmt.Sprintf("cannot read system-connection file %s: %s", p, err))
		}
		contents = append(contents, data)
	}
	return contents, nil
}

func (s *Sequencer) writeDescriptor(ctx context.Context, imagePath string, loc image.Location, d deviceconfig.Descriptor) error {
	content, err := d.Bytes()
	if err != nil {
		return NewRetrievalError("failed to encode config descriptor", err)
	}
	if err := s.writer.WriteFile(ctx, imagePath, loc, content); err != nil {
		return NewWriteError("failed to write config descriptor", loc.Partition, loc.Path, err)
	}
	s.info("wrote config descriptor", map[string]string{"location": loc.String()})
	return nil
}

// writeConnections writes the supplementary files strictly in input order.
// The first failure aborts remaining writes; files already written stay in
// the image.
func (s *Sequencer) writeConnections(ctx context.Context, imagePath string, paths []string, contents [][]byte) ([]image.Location, error) {
	var written []image.Location
	for i, p := range paths {
		loc := image.ConnectionLocation(p)
		if err := s.writer.WriteFile(ctx, imagePath, loc, contents[i]); err != nil {
			return written, NewWriteError(
				fmt.Sprintf("failed to write connection profile %s", p),
				loc.Partition, loc.Path, err)
		}
		written = append(written, loc)
		s.info("wrote connection profile", map[string]string{"location": loc.String()})
	}
	return written, nil
}
