package deprecation

// builtin maps well-known deprecated npm packages to replacement advice. A
// "name@N" key only matches declarations on major version N.
var builtin = map[string]string{
	"request":                 "Use the built-in fetch API, undici, or axios",
	"request-promise":         "Use the built-in fetch API, undici, or axios",
	"request-promise-native":  "Use the built-in fetch API, undici, or axios",
	"node-sass":               "Use sass (Dart Sass)",
	"tslint":                  "Use eslint with typescript-eslint",
	"left-pad":                "Use String.prototype.padStart",
	"querystring":             "Use URLSearchParams",
	"uuid-js":                 "Use crypto.randomUUID or the uuid package",
	"node-uuid":               "Use crypto.randomUUID or the uuid package",
	"istanbul":                "Use nyc or c8",
	"babel-eslint":            "Use @babel/eslint-parser",
	"babel-preset-es2015":     "Use @babel/preset-env",
	"babel-preset-es2017":     "Use @babel/preset-env",
	"babel-core":              "Use @babel/core",
	"core-js@2":               "Upgrade to core-js 3",
	"gulp-util":               "Use the individual modules it re-exported",
	"coffee-script":           "Use coffeescript",
	"mkdirp":                  "Use fs.mkdir with { recursive: true }",
	"rimraf@2":                "Use fs.rm with { recursive: true }",
	"har-validator":           "No replacement; drop together with request",
	"popper.js":               "Use @popperjs/core",
	"domexception":            "Use the platform DOMException",
	"abab":                    "Use the platform atob and btoa",
	"sourcemap-codec":         "Use @jridgewell/sourcemap-codec",
	"querystring-es3":         "Use URLSearchParams",
	"uglify-es":               "Use terser",
	"@hapi/joi":               "Use joi",
	"joi-browser":             "Use joi",
	"react-addons-test-utils": "Use react-dom/test-utils",
	"protractor":              "Use Playwright, Cypress, or WebdriverIO",
	"enzyme":                  "Use @testing-library/react",
	"moment":                  "Use date-fns, dayjs, Luxon, or Temporal",
}
