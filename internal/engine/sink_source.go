package engine

import "fastcodec/internal/value"

// Sink receives the events the decoder emits while walking a template
// (spec.md §6 "Message sink (decode)"). It is the engine's boundary with
// the out-of-scope message factory / object-mapping bridge.
type Sink interface {
	StartTemplate(id uint32, name string)
	StopTemplate()
	SetValue(id uint32, name string, v *value.Value)
	StartSequence(id uint32, name string, length uint32)
	StartSequenceItem(index int)
	StopSequenceItem()
	StopSequence()
	StartGroup(name string)
	StopGroup()
	StartTemplateRef(name string, dynamic bool)
	StopTemplateRef()
}

// Source supplies the values the encoder pulls while walking a template
// (spec.md §6 "Message source (encode)").
type Source interface {
	TemplateName() string
	GetValue(name string) *value.Value // nil means absent/None
	SelectGroup(name string) bool
	ReleaseGroup()
	SelectSequence(name string) (length uint32, ok bool)
	SelectSequenceItem(i int)
	ReleaseSequenceItem()
	ReleaseSequence()
	SelectTemplateRef(name string, dynamic bool) (templateName string, ok bool)
	ReleaseTemplateRef()
}
