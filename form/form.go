package form

import (
	"context"
	"fmt"
	"strings"

	metaform "github.com/eventara/metaform"
	"github.com/eventara/metaform/client"
	"github.com/eventara/metaform/compute"
	"github.com/eventara/metaform/geo"
	"github.com/eventara/metaform/mask"
	"github.com/eventara/metaform/meta"
	"github.com/eventara/metaform/session"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// Phase is the record's lifecycle state.
type Phase int

const (
	// PhaseHydrating: the server fetch is in flight; controls are inert.
	PhaseHydrating Phase = iota
	// PhaseEditing: local state is authoritative and diverges from the
	// server until submit.
	PhaseEditing
	// PhaseSubmitted: the shaped payload was accepted; local state was
	// replaced by the server response.
	PhaseSubmitted
	// PhaseLoadFailed: hydration failed with a non-404 error.
	PhaseLoadFailed
)

// Form owns one entity record's full lifecycle. It is the single writer of
// the record under edit: resolvers and array sub-components read current
// values and call back into it, never holding authoritative state of their
// own.
type Form struct {
	entity   meta.EntityMetadata
	cli      *client.Client
	sess     *session.Session
	geocoder geo.Geocoder
	log      zerolog.Logger

	rec      metaform.Record
	errs     metaform.FieldErrors
	entityID any
	phase    Phase

	hidden       map[string]bool
	forceVisible []string
	arrays       map[string]*ArrayField
	onSuccess    func(metaform.Record)
	redirect     string
}

// Option configures a Form.
type Option func(*Form)

// WithClient wires the backend client used for hydrate and submit.
func WithClient(c *client.Client) Option {
	return func(f *Form) { f.cli = c }
}

// WithSession threads the current user into the orchestrator and resolver.
func WithSession(s *session.Session) Option {
	return func(f *Form) { f.sess = s }
}

// WithGeocoder wires the address-picker collaborator.
func WithGeocoder(g geo.Geocoder) Option {
	return func(f *Form) { f.geocoder = g }
}

// WithLogger installs a structured logger.
func WithLogger(log zerolog.Logger) Option {
	return func(f *Form) { f.log = log }
}

// WithRecordID puts the form in edit mode for an existing record.
func WithRecordID(id any) Option {
	return func(f *Form) { f.entityID = id }
}

// WithHiddenFields drops fields from the UI without clearing their values;
// hiding is purely a presentation concern.
func WithHiddenFields(names ...string) Option {
	return func(f *Form) {
		for _, n := range names {
			f.hidden[n] = true
		}
	}
}

// WithForceVisible forces fields into the form even when metadata omits
// them; such fields are synthesized as plain text inputs.
func WithForceVisible(names ...string) Option {
	return func(f *Form) { f.forceVisible = append(f.forceVisible, names...) }
}

// WithOnSuccess registers the post-submit success callback.
func WithOnSuccess(fn func(metaform.Record)) Option {
	return func(f *Form) { f.onSuccess = fn }
}

// WithRedirect configures the post-submit navigation target used when no
// success callback is registered.
func WithRedirect(target string) Option {
	return func(f *Form) { f.redirect = target }
}

// New builds a form over one entity's metadata.
func New(entity meta.EntityMetadata, opts ...Option) *Form {
	f := &Form{
		entity: entity,
		log:    zerolog.Nop(),
		rec:    metaform.Record{},
		errs:   metaform.FieldErrors{},
		hidden: map[string]bool{},
		arrays: map[string]*ArrayField{},
		phase:  PhaseHydrating,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Phase returns the current lifecycle state.
func (f *Form) Phase() Phase { return f.phase }

// Editing reports whether the form targets an existing record.
func (f *Form) Editing() bool { return f.entityID != nil }

// Record exposes the live record. Callers must treat it as read-only; all
// writes go through Set, SetFields or the array engine.
func (f *Form) Record() metaform.Record { return f.rec }

// Errors returns the current field-keyed error map: inline messages plus the
// material for the summary banner.
func (f *Form) Errors() metaform.FieldErrors { return f.errs }

// Redirect returns the configured post-submit target.
func (f *Form) Redirect() string { return f.redirect }

// Hydrate loads the record under edit, or seeds a fresh one. A 404 on fetch
// means "no record yet": the form silently falls back to create mode. Any
// other failure leaves the form in a loading-failed state and returns the
// error for the caller's toast.
func (f *Form) Hydrate(ctx context.Context) error {
	if f.entityID == nil {
		f.seedDefaults()
		f.phase = PhaseEditing
		return nil
	}
	lo.Assert(f.cli != nil, "form: hydrating an existing record requires a client")
	rec, found, err := f.cli.Fetch(ctx, f.entity.ResolvedEndpoint(), f.entityID)
	if err != nil {
		f.phase = PhaseLoadFailed
		f.log.Error().Err(err).Str("entity", f.entity.Name).Msg("hydrate failed")
		return err
	}
	if !found {
		f.log.Debug().Str("entity", f.entity.Name).Msg("record not found, falling back to create mode")
		f.entityID = nil
		f.seedDefaults()
		f.phase = PhaseEditing
		return nil
	}
	f.rec = f.normalizeOnLoad(rec)
	f.hideOrganizationField()
	f.recompute()
	f.phase = PhaseEditing
	return nil
}

// seedDefaults populates a create-mode record from each field's defaultValue
// and injects the current organization for non-admin users.
func (f *Form) seedDefaults() {
	for _, field := range f.entity.AllFormFields() {
		if field.DefaultValue != nil {
			f.rec[field.Name] = field.DefaultValue
		}
	}
	if orgField, ok := f.organizationField(); ok && f.sess != nil && !f.sess.IsAdmin() && f.sess.OrganizationID != "" {
		f.rec["organizationId"] = f.sess.OrganizationID
		f.hidden[orgField.Name] = true
	}
	f.recompute()
}

// hideOrganizationField hides the organization link from non-admins in edit
// mode as well; admins always see and may change it.
func (f *Form) hideOrganizationField() {
	if orgField, ok := f.organizationField(); ok && !f.sess.IsAdmin() {
		f.hidden[orgField.Name] = true
	}
}

// organizationField finds the metadata-declared organization link, if any.
func (f *Form) organizationField() (meta.FieldMetadata, bool) {
	for _, field := range f.entity.AllFormFields() {
		name := strings.ToLower(field.Name)
		if name == "organization" || name == "organizationid" {
			return field, true
		}
		if field.Relationship != nil && strings.EqualFold(field.Relationship.Entity, "organization") {
			return field, true
		}
	}
	return meta.FieldMetadata{}, false
}

// normalizeOnLoad flattens relationship-shaped values to bare ids, except
// for typeahead-rendered fields which keep their {id,label} shape for
// display. The two representations are never mixed again until submit
// re-normalizes everything to {id} objects.
func (f *Form) normalizeOnLoad(rec metaform.Record) metaform.Record {
	for _, field := range f.entity.AllFormFields() {
		c := meta.Classify(field)
		if c.Kind != meta.KindEntity {
			continue
		}
		ec, errMsg := resolveEntityConfig(field)
		if errMsg != "" || ec.RenderAs == meta.RenderTypeahead {
			continue
		}
		if id, ok := metaform.RelationID(rec[field.Name]); ok {
			rec[field.Name] = id
		}
	}
	return rec
}

// Set applies one field edit and re-derives the computed fields that depend
// on it. The form is the single writer: every control's write handler lands
// here.
func (f *Form) Set(field string, value any) {
	f.rec[field] = value
	f.recompute(field)
}

// SetFields applies a batch of writes atomically, then re-derives once.
// This is the address fan-out channel from the resolver contract.
func (f *Form) SetFields(patch map[string]any) {
	changed := make([]string, 0, len(patch))
	for field, value := range patch {
		f.rec[field] = value
		changed = append(changed, field)
	}
	f.recompute(changed...)
}

// commitArray is the array engine's write-back: it replaces the sequence in
// the record, then re-derives record-level computed fields.
func (f *Form) commitArray(field string, items []metaform.Record) {
	f.rec[field] = items
	f.recompute(field)
}

// recompute runs the derivation pass until it reaches its fixed point, which
// given pure derivation functions is after at most one writing sweep. With
// changed field names it re-derives only their dependents; without, it sweeps
// everything (hydrate and default seeding).
func (f *Form) recompute(changed ...string) {
	compute.PassFor(f.rec, f.entity.AllFormFields(), changed...)
}

// ApplyAddress resolves the user's address selection through the geocoder
// and fans the result out into every declared address component field as one
// atomic batch. Without a geocoder the text lands alone in the address
// field.
func (f *Form) ApplyAddress(ctx context.Context, field string, text string) error {
	if f.geocoder == nil {
		f.Set(field, text)
		return nil
	}
	addr, err := f.geocoder.Geocode(ctx, text)
	if err != nil {
		return fmt.Errorf("geocode '%s': %w", text, err)
	}
	f.SetFields(geo.BatchWrites(field, addr, f.entity.AllFormFields()))
	return nil
}

// parentLinked reports whether a nested field names the enclosing entity
// itself (or its id, or a relationship back to it). Such fields are excluded
// from sub-form render and from submission; the orchestrator owns the parent
// linkage.
func (f *Form) parentLinked(field meta.FieldMetadata) bool {
	parent := strings.ToLower(f.entity.Name)
	name := strings.ToLower(field.Name)
	if name == parent || name == parent+"id" {
		return true
	}
	return field.Relationship != nil && strings.EqualFold(field.Relationship.Entity, f.entity.Name)
}

// VisibleFields returns the fields currently rendered: metadata-visible,
// showIf-satisfied, not presentation-hidden, plus synthesized plain text
// fields for the force-visible override list. Values of hidden fields are
// retained in state; hiding never clears.
func (f *Form) VisibleFields() []meta.FieldMetadata {
	var fields []meta.FieldMetadata
	seen := map[string]bool{}
	for _, field := range f.entity.AllFormFields() {
		seen[field.Name] = true
		if !field.IsVisible() || f.hidden[field.Name] {
			continue
		}
		if !meta.ShowIf(field.ShowIf, f.rec) {
			continue
		}
		fields = append(fields, field)
	}
	for _, name := range f.forceVisible {
		if !seen[name] {
			fields = append(fields, meta.Synthesize(name))
		}
	}
	return fields
}

// Controls resolves the renderable control list for the current record,
// with write-backs wired into the orchestrator. Array fields are delegated
// to their ArrayField engine and never rendered inline.
func (f *Form) Controls() []Control {
	var controls []Control
	for _, field := range f.VisibleFields() {
		ctrl := Resolve(field, f.rec, f.sess)
		if f.phase != PhaseEditing {
			ctrl.Disabled = true
		}
		ctrl.Write = f.Set
		ctrl.BatchWrite = f.SetFields
		controls = append(controls, ctrl)
	}
	return controls
}

// Array returns the sub-form engine for an array field, creating it on first
// use. It panics on non-array fields, which is a programmer error.
func (f *Form) Array(name string) *ArrayField {
	if a, ok := f.arrays[name]; ok {
		return a
	}
	field, ok := f.entity.FieldByName(name)
	lo.Assertf(ok && field.Type == meta.TypeArray, "form: '%s' is not an array field of %s", name, f.entity.Name)
	a := newArrayField(f, field)
	f.arrays[name] = a
	return a
}

// Payload shapes the current record into the exact submission body the
// backend expects.
func (f *Form) Payload() metaform.Record {
	payload := f.rec.Clone()

	// Inject the organization link on create for non-admin users, dropping
	// the bare id the defaults seeded.
	if !f.Editing() && f.sess != nil && !f.sess.IsAdmin() && f.sess.OrganizationID != "" {
		if _, ok := f.organizationField(); ok {
			payload["organization"] = metaform.IDObject(f.sess.OrganizationID)
			delete(payload, "organizationId")
		}
	}

	// Bare foreign-key ids become {id} relationship objects.
	for bare, rel := range map[string]string{"organizationId": "organization", "cityId": "city"} {
		if v, ok := payload[bare]; ok && v != nil {
			if _, exists := payload[rel]; !exists {
				payload[rel] = metaform.IDObject(v)
			}
			delete(payload, bare)
		}
	}

	for _, field := range f.entity.AllFormFields() {
		c := meta.Classify(field)
		switch c.Kind {
		case meta.KindEntity, meta.KindCity:
			// Re-normalize every relationship to the {id} object form; bare
			// ids and {id,label} display shapes must never reach the wire.
			if id, ok := metaform.RelationID(payload[field.Name]); ok {
				payload[field.Name] = metaform.IDObject(id)
			}
		case meta.KindArray:
			payload[field.Name] = f.shapeItems(field, payload.Items(field.Name))
		}
	}

	// Strip mask punctuation everywhere, then drop fields that belong to a
	// different entity.
	payload = mask.UnmaskPayload(payload)
	for _, field := range f.entity.AllFormFields() {
		if field.Transferred {
			delete(payload, field.Name)
		}
	}
	return payload
}

// shapeItems prepares array sub-records for submission: parent linkage keys
// are stripped and nested relationships re-normalized.
func (f *Form) shapeItems(field meta.FieldMetadata, items []metaform.Record) []metaform.Record {
	parent := strings.ToLower(f.entity.Name)
	var nested []meta.FieldMetadata
	if field.ArrayConfig != nil {
		nested = field.ArrayConfig.Fields
	}
	shaped := make([]metaform.Record, len(items))
	for i, item := range items {
		out := item.Clone()
		for key := range out {
			lower := strings.ToLower(key)
			if lower == parent || lower == parent+"id" {
				delete(out, key)
			}
		}
		for _, nf := range nested {
			if f.parentLinked(nf) {
				delete(out, nf.Name)
				continue
			}
			if meta.Classify(nf).Kind == meta.KindEntity {
				if id, ok := metaform.RelationID(out[nf.Name]); ok {
					out[nf.Name] = metaform.IDObject(id)
				}
			}
		}
		shaped[i] = out
	}
	return shaped
}

// ShapeAndValidate runs the full validation and payload-shaping pipeline
// over an externally supplied record, without hydrating or submitting. It is
// the entry point the framework adaptors use to vet incoming submissions
// with exactly the engine's rules.
func ShapeAndValidate(entity meta.EntityMetadata, rec metaform.Record, sess *session.Session) (metaform.Record, metaform.FieldErrors) {
	f := New(entity, WithSession(sess))
	f.rec = rec
	f.phase = PhaseEditing
	f.recompute()
	errs := f.Validate()
	if msg := f.deliveryDistanceGuard(); msg != "" {
		errs.Add("distance", msg)
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return f.Payload(), nil
}

// Submit validates, applies the delivery distance guard, shapes the payload
// and sends it: POST on create, PUT on edit. Server-side field errors are
// merged into the same error channel as local validation; local edits always
// survive a failure.
func (f *Form) Submit(ctx context.Context) (metaform.Record, error) {
	lo.Assert(f.cli != nil, "form: submitting requires a client")
	f.errs = f.Validate()
	if msg := f.deliveryDistanceGuard(); msg != "" {
		f.errs.Add("distance", msg)
	}
	if err := f.errs.Err(); err != nil {
		return nil, err
	}

	payload := f.Payload()
	var (
		saved metaform.Record
		err   error
	)
	if f.Editing() {
		saved, err = f.cli.Update(ctx, f.entity.ResolvedEndpoint(), f.entityID, payload)
	} else {
		saved, err = f.cli.Create(ctx, f.entity.ResolvedEndpoint(), payload)
	}
	if err != nil {
		if se, ok := err.(*client.ServerError); ok {
			for field, msg := range se.Fields {
				f.errs.Add(field, msg)
			}
		}
		f.log.Error().Err(err).Str("entity", f.entity.Name).Msg("submit failed")
		return nil, err
	}
	f.rec = saved
	f.phase = PhaseSubmitted
	f.log.Info().Str("entity", f.entity.Name).Msg("submitted")
	if f.onSuccess != nil {
		f.onSuccess(saved)
	}
	return saved, nil
}
