package registry

import "sync"

// Keys of the builtin catalog. The capability assignments below are best
// guesses by the catalog author and have not been checked against a server.
const (
	Phi4MiniInstruct      Key = "Phi4MiniInstruct"
	Phi31Mini128kInstruct Key = "Phi31Mini128kInstruct"
	OpenHermes25Mistral7B Key = "OpenHermes25Mistral7B"
	NousHermes2Mistral7B  Key = "NousHermes2Mistral7B"
	MythomaxL213B         Key = "MythomaxL213B"
	Gemma34BITQat         Key = "Gemma34BITQat"
	DeepSeekR1Qwen7B      Key = "DeepSeekR1Qwen7B"
	DeepSeekCoder67B      Key = "DeepSeekCoder67B"
)

// BuiltinEntries returns the builtin catalog entries in declaration order.
func BuiltinEntries() []Entry {
	return []Entry{
		{Phi4MiniInstruct, NewDescriptor(ProviderOpenAI, "phi-4-mini-instruct",
			CapabilityStructuredOutputSimple, CapabilityCompletion, CapabilityTools, CapabilityToolChoice)},
		{Phi31Mini128kInstruct, NewDescriptor(ProviderOpenAI, "phi-3.1-mini-128k-instruct",
			CapabilityStructuredOutputSimple, CapabilityCompletion)},
		{OpenHermes25Mistral7B, NewDescriptor(ProviderOpenAI, "openhermes-2.5-mistral-7b",
			CapabilitySpeculation, CapabilityStructuredOutputFull, CapabilityCompletion)},
		{NousHermes2Mistral7B, NewDescriptor(ProviderOpenAI, "nous-hermes-2-mistral-7b-dpo",
			CapabilitySpeculation, CapabilityStructuredOutputFull, CapabilityCompletion)},
		{MythomaxL213B, NewDescriptor(ProviderOpenAI, "mythomax-l2-13b",
			CapabilityStructuredOutputSimple, CapabilityCompletion)},
		{Gemma34BITQat, NewDescriptor(ProviderOpenAI, "gemma-3-4b-it-qat",
			CapabilityStructuredOutputSimple, CapabilityCompletion)},
		{DeepSeekR1Qwen7B, NewDescriptor(ProviderOpenAI, "deepseek-r1-distill-qwen-7b",
			CapabilitySpeculation, CapabilityStructuredOutputFull, CapabilityCompletion)},
		{DeepSeekCoder67B, NewDescriptor(ProviderOpenAI, "deepseek-coder-6.7b-instruct",
			CapabilityStructuredOutputSimple, CapabilityCompletion)},
	}
}

var builtin = sync.OnceValue(func() *Registry {
	r, err := New(BuiltinEntries()...)
	if err != nil {
		panic("builtin model registry: " + err.Error())
	}
	return r
})

// Builtin returns the builtin registry. It is built once and shared.
func Builtin() *Registry {
	return builtin()
}
