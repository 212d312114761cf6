package guardrails

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/resto-ai/support-engine/internal/model"
)

// inputRule is one pattern checked against incoming user messages.
type inputRule struct {
	id       string
	name     string
	severity model.Severity
	re       *regexp.Regexp
	redact   bool
	message  string
}

// outputRule is one pattern checked against generated responses.
type outputRule struct {
	id       string
	name     string
	severity model.Severity
	re       *regexp.Regexp
	// replace swaps the offending sentence for the neutral disclaimer.
	replace bool
	message string
}

// Disclaimer substituted for blocked response sentences.
const Disclaimer = "Je transmets votre demande à notre équipe pour confirmation, nous revenons vers vous au plus vite."

func defaultInputRules() []inputRule {
	return []inputRule{
		{
			id:       "prompt_injection",
			name:     "prompt injection",
			severity: model.SeverityBlock,
			re: regexp.MustCompile(`(?i)(ignore (all |toutes les |your |tes )?(previous |precedentes )?instructions|disregard (the )?(system|previous)|you are now|act as if|pretend to be|jailbreak|reveal your (system )?prompt|oublie (tes|toutes les) instructions)`),
			message: "Je ne peux pas traiter cette demande. Comment puis-je vous aider avec votre commande ?",
		},
		{
			id:       "payment_card",
			name:     "payment card number",
			severity: model.SeverityEscalate,
			re:       regexp.MustCompile(`\b(?:\d[ -]?){13,19}\b`),
			redact:   true,
			message:  "Merci de ne jamais partager de données bancaires dans le chat.",
		},
		{
			id:       "national_id",
			name:     "national identification number",
			severity: model.SeverityEscalate,
			re:       regexp.MustCompile(`\b\d{2}\.\d{2}\.\d{2}-\d{3}\.\d{2}\b`),
			redact:   true,
			message:  "Merci de ne pas partager de numéro national dans le chat.",
		},
		{
			id:       "offensive_language",
			name:     "offensive language",
			severity: model.SeverityWarning,
			re:       regexp.MustCompile(`(?i)\b(connard|encule|pute|merde alors|fuck|asshole|klootzak|kanker)\b`),
			message:  "offensive language detected",
		},
		{
			id:       "medical_advice",
			name:     "medical advice request",
			severity: model.SeverityEscalate,
			re:       regexp.MustCompile(`(?i)(intoxication|empoisonn|allergic reaction|reaction allergique|hopital|hospital|ambulance|anaphyla)`),
			message:  "Pour toute urgence médicale, contactez immédiatement le 112.",
		},
	}
}

func defaultOutputRules() []outputRule {
	return []outputRule{
		{
			id:       "absolute_promise",
			name:     "absolute promise",
			severity: model.SeverityBlock,
			re: regexp.MustCompile(`(?i)(vous serez rembourse|remboursement garanti|guaranteed? refund|100% refund|je vous garantis|we guarantee|arrivera dans exactement|will definitely arrive|u krijgt zeker)`),
			replace: true,
			message: "unsupported absolute promise removed",
		},
		{
			id:       "refusal",
			name:     "assistant refusal",
			severity: model.SeverityEscalate,
			re: regexp.MustCompile(`(?i)(je ne peux pas vous aider|i cannot help|i am unable to|ik kan u niet helpen|je suis incapable)`),
			message: "assistant unable to help, flagging for human follow-up",
		},
	}
}

// ruleFile is the YAML shape for operator-supplied rule overrides.
type ruleFile struct {
	Input []struct {
		ID       string `yaml:"id"`
		Name     string `yaml:"name"`
		Severity string `yaml:"severity"`
		Pattern  string `yaml:"pattern"`
		Redact   bool   `yaml:"redact"`
		Message  string `yaml:"message"`
	} `yaml:"input"`
	Output []struct {
		ID       string `yaml:"id"`
		Name     string `yaml:"name"`
		Severity string `yaml:"severity"`
		Pattern  string `yaml:"pattern"`
		Replace  bool   `yaml:"replace"`
		Message  string `yaml:"message"`
	} `yaml:"output"`
}

// LoadRuleFile parses additional guardrail rules from a YAML file. Loaded
// rules are appended after the built-in set.
func LoadRuleFile(path string) ([]inputRule, []outputRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read rule file: %w", err)
	}

	var rf ruleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, nil, fmt.Errorf("failed to parse rule file: %w", err)
	}

	var in []inputRule
	for _, r := range rf.Input {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, nil, fmt.Errorf("rule %s: invalid pattern: %w", r.ID, err)
		}
		in = append(in, inputRule{
			id: r.ID, name: r.Name, severity: model.Severity(r.Severity),
			re: re, redact: r.Redact, message: r.Message,
		})
	}

	var out []outputRule
	for _, r := range rf.Output {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, nil, fmt.Errorf("rule %s: invalid pattern: %w", r.ID, err)
		}
		out = append(out, outputRule{
			id: r.ID, name: r.Name, severity: model.Severity(r.Severity),
			re: re, replace: r.Replace, message: r.Message,
		})
	}

	return in, out, nil
}
