package naming

import (
	"fmt"
	"strings"

	utilvalidation "k8s.io/apimachinery/pkg/util/validation"
)

// instanceNameMaxLength keeps `mqtt2prometheus-config-<name>` within a DNS label.
const instanceNameMaxLength = 40

func validateDNS1123Label(name string, maximum int, labelKind string) error {
	if name == "" {
		return fmt.Errorf("%s name must not be empty", labelKind)
	}
	if len(name) > maximum {
		return fmt.Errorf("%s name exceeds %d characters", labelKind, maximum)
	}
	if errs := utilvalidation.IsDNS1123Label(name); len(errs) > 0 {
		return fmt.Errorf("invalid %s name: %s", labelKind, strings.Join(errs, ", "))
	}
	return nil
}

// ValidateInstanceName checks that an exporter instance name can be embedded in
// every derived resource name.
func ValidateInstanceName(name string) error {
	return validateDNS1123Label(name, instanceNameMaxLength, "instance")
}

// ValidateHostname checks a DNS-1123 subdomain such as a broker hostname.
func ValidateHostname(name string) error {
	if name == "" {
		return fmt.Errorf("hostname must not be empty")
	}
	if errs := utilvalidation.IsDNS1123Subdomain(name); len(errs) > 0 {
		return fmt.Errorf("invalid hostname: %s", strings.Join(errs, ", "))
	}
	return nil
}
