package core

import (
	"regexp"
	"strings"
)

// category is a named keyword family. Patterns are regexp fragments matched
// as whole words against accent-folded, lowercased text.
type category struct {
	name      string
	re        *regexp.Regexp
	rationale string
	actions   []string
}

func newCategory(name, rationale string, actions []string, patterns ...string) category {
	return category{
		name:      name,
		re:        wordsRe(patterns...),
		rationale: rationale,
		actions:   actions,
	}
}

func wordsRe(patterns ...string) *regexp.Regexp {
	return regexp.MustCompile(`\b(?:` + strings.Join(patterns, "|") + `)\b`)
}

// Category names
const (
	CategoryFinance  = "finance"
	CategoryBills    = "bills"
	CategorySecurity = "security"
	CategorySchool   = "school"
	CategoryDeadline = "deadline"
	CategoryTrusted  = "trusted-sender"
	CategoryDocument = "documents"
	CategoryTravel   = "travel"
	CategoryOrders   = "orders"
	CategoryHealth   = "health"
	CategoryInfra    = "infrastructure"
	CategoryPromo    = "promotion"
)

var highIntentCategories = []category{
	newCategory(CategoryFinance,
		"Financial message: a charge, statement or payment needs attention.",
		[]string{"Check the amount and the due date", "Pay or confirm the automatic debit"},
		`fatura`, `boleto`, `pagamento`, `pix`, `cobranca`, `debito automatico`, `cartao de credito`, `extrato`,
		`transferencia`, `invoice`, `payment`, `billing`, `bank statement`, `amount due`, `reembolso`, `refund`),
	newCategory(CategoryBills,
		"Household bill or tax notice.",
		[]string{"Check the amount and the due date", "Pay before the due date"},
		`conta de (?:luz|agua|gas|energia|internet|telefone)`, `condominio`, `aluguel`, `iptu`, `ipva`, `imposto`,
		`receita federal`, `darf`, `irpf`, `tax return`, `rent`, `utility bill`),
	newCategory(CategorySecurity,
		"Security notice about one of your accounts.",
		[]string{"Confirm whether the activity was yours", "Change the password if you do not recognize it"},
		`fraude`, `suspeit[oa]`, `acesso nao reconhecido`, `compra nao reconhecida`, `login suspeito`, `bloquead[oa]`,
		`fraud`, `suspicious`, `unauthorized`, `security alert`, `unusual (?:sign-in|activity)`, `password reset`),
	newCategory(CategorySchool,
		"School message about a student, tuition or meeting.",
		[]string{"Read the school notice", "Add any meeting or deadline to the calendar"},
		`escola`, `colegio`, `matricula`, `rematricula`, `boletim`, `reuniao de pais`, `mensalidade`, `licao`,
		`professor[a]?`, `school`, `tuition`, `teacher`, `parent-teacher`, `homework`, `report card`),
	newCategory(CategoryDeadline,
		"Something expires or is due soon.",
		[]string{"Note the deadline", "Handle it before it expires"},
		`prazo`, `vencimento`, `vence(?:m|u)?`, `vencid[oa]s?`, `ultimo dia`, `expira(?:cao)?`, `renovacao`,
		`atrasad[oa]s?`, `em atraso`, `deadline`, `due`, `overdue`, `expires?`, `last day`, `past due`),
}

var weakCategories = []category{
	newCategory(CategoryDocument,
		"Document or contract to review.",
		[]string{"Review the document"},
		`documento`, `contrato`, `assinatura`, `certidao`, `comprovante`, `recibo`, `nota fiscal`,
		`receipt`, `contract`, `signature`, `docusign`),
	newCategory(CategoryTravel,
		"Travel or booking update.",
		[]string{"Check the booking details"},
		`voo`, `viagem`, `reserva`, `check-in`, `embarque`, `passagem`, `hotel`,
		`flight`, `booking`, `reservation`, `itinerary`, `boarding`),
	newCategory(CategoryOrders,
		"Order or delivery update.",
		[]string{"Track the delivery"},
		`pedido`, `entrega`, `encomenda`, `rastreamento`, `order`, `shipped`, `delivery`, `tracking`),
	newCategory(CategoryHealth,
		"Health appointment or exam.",
		[]string{"Confirm the appointment"},
		`consulta`, `exame`, `medic[oa]`, `agendamento`, `vacina`, `appointment`, `doctor`, `lab results`),
}

var trustedCategory = category{
	name:      CategoryTrusted,
	rationale: "Message from a sender on your priority list.",
	actions:   []string{"Read and reply if needed"},
}

var (
	infraVendorRe = wordsRe(`vercel`, `netlify`, `sentry`, `datadog`, `pagerduty`, `grafana`, `new relic`, `newrelic`,
		`uptimerobot`, `statuspage`, `opsgenie`, `better ?uptime`, `circleci`, `github actions`, `heroku`, `railway`,
		`supabase`, `cloudflare`, `render\.com`)
	infraWordsRe = wordsRe(`deploy(?:ment|ed|s)?`, `build (?:failed|succeeded|passed)`, `incident`, `outage`,
		`downtime`, `monitor(?:ing)?`, `uptime`, `crash(?:ed|es)?`, `pipeline`, `workflow run`, `run failed`,
		`error rate`, `latency`, `cpu`, `disk usage`, `is down`, `went down`)
	resolvedRe = wordsRe(`resolved`, `recovered`, `is (?:back )?up`, `back online`, `operational`, `resolvido`,
		`normalizado`, `restabelecido`, `recuperado`)
	promoRe = wordsRe(`promocao`, `promocoes`, `oferta`, `ofertas`, `desconto`, `descontos`, `cupom`, `liquidacao`,
		`black friday`, `newsletter`, `frete gratis`, `imperdivel`, `sale`, `discount`, `offer`, `deal`, `deals`,
		`\d+% off`, `webinar`, `limited time`)
)

// Built-in infrastructure sender domains, extended by configuration
var defaultIgnoreDomains = []string{
	"vercel.com", "netlify.com", "sentry.io", "datadoghq.com", "pagerduty.com", "grafana.net",
	"uptimerobot.com", "statuspage.io", "opsgenie.net", "circleci.com", "heroku.com", "railway.app",
}

// DefaultIgnoreDomains returns the built-in infrastructure domains
func DefaultIgnoreDomains() []string {
	out := make([]string, len(defaultIgnoreDomains))
	copy(out, defaultIgnoreDomains)
	return out
}

// Score policy constants
const (
	ignoreBaseScore    = 20
	ignoreMaxScore     = 20
	resolvedPenalty    = 15
	highBaseScore      = 75
	highPerCategory    = 5
	highKeywordCap     = 85
	promoScore         = 15
	promoMaxScore      = 25
	defaultBaseScore   = 25
	defaultPerWeakHit  = 20
	defaultMaxScore    = 55
	repeatIncrement    = 3
	repeatBonusCap     = 10
	delegatedMaxScore  = 85
	rationaleSnippetSz = 140
)
