// Package policy loads declarative permission policies and installs them on
// a schema.
package policy

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config is a policy file. Names are carried in values rather than map keys
// because keys are case-folded on load.
type Config struct {
	JWTSecret   string             `mapstructure:"jwt_secret"`
	Redis       RedisConfig        `mapstructure:"redis"`
	Permissions []PermissionConfig `mapstructure:"permissions" validate:"dive"`
	Fields      []FieldConfig      `mapstructure:"fields" validate:"dive"`
}

type RedisConfig struct {
	Addr   string `mapstructure:"addr"`
	Prefix string `mapstructure:"prefix"`
}

// PermissionConfig declares one permission. Exactly one of Expr (checked
// synchronously) and Grant (looked up in the grant store) is set.
type PermissionConfig struct {
	Name       string         `mapstructure:"name" validate:"required,graphqlname"`
	Message    string         `mapstructure:"message"`
	Extensions map[string]any `mapstructure:"extensions"`
	Expr       string         `mapstructure:"expr" validate:"required_without=Grant,excluded_with=Grant"`
	Grant      string         `mapstructure:"grant" validate:"required_without=Expr"`
}

// FieldConfig gates the field named "Type.field" behind Permissions, checked
// in order.
type FieldConfig struct {
	Field         string   `mapstructure:"field" validate:"required,fieldcoord"`
	Permissions   []string `mapstructure:"permissions" validate:"required,min=1"`
	FailSilently  bool     `mapstructure:"fail_silently"`
	UseDirectives *bool    `mapstructure:"use_directives"`
}

var (
	validate = validator.New()

	nameRe  = regexp.MustCompile(`^[_A-Za-z][_0-9A-Za-z]*$`)
	coordRe = regexp.MustCompile(`^[_A-Za-z][_0-9A-Za-z]*\.[_A-Za-z][_0-9A-Za-z]*$`)
)

func init() {
	validate.RegisterValidation("graphqlname", func(fl validator.FieldLevel) bool {
		return nameRe.MatchString(fl.Field().String())
	})
	validate.RegisterValidation("fieldcoord", func(fl validator.FieldLevel) bool {
		return coordRe.MatchString(fl.Field().String())
	})
}

// Load reads the policy at path. PERMGRAPH_JWT_SECRET and
// PERMGRAPH_REDIS_ADDR override the file.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("PERMGRAPH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("jwt_secret", "")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.prefix", "grants")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read policy: %w", err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal policy: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the config's shape. Cross references between fields and
// permissions are checked when the policy is installed.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid policy: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid policy: %w", err)
	}
	return nil
}
