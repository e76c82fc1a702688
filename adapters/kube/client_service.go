package kube

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/yaegashi/iotops/internal/logging"
)

// DefaultAddressTimeout bounds the wait for a load balancer address.
const DefaultAddressTimeout = 5 * time.Minute

var errAddressPending = errors.New("load balancer address pending")

// ServiceAddress returns the first ingress IP or hostname of a LoadBalancer service,
// or "" while none is assigned.
func ServiceAddress(svc *corev1.Service) string {
	if svc == nil {
		return ""
	}
	for _, ing := range svc.Status.LoadBalancer.Ingress {
		if ing.IP != "" {
			return ing.IP
		}
		if ing.Hostname != "" {
			return ing.Hostname
		}
	}
	return ""
}

// WaitServiceAddress polls a LoadBalancer service until an external address is assigned.
func (c *Client) WaitServiceAddress(ctx context.Context, namespace, name string, timeout time.Duration) (string, error) {
	if c == nil || c.Clientset == nil {
		return "", fmt.Errorf("kube client is not initialized")
	}
	if timeout <= 0 {
		timeout = DefaultAddressTimeout
	}
	logger := logging.FromContext(ctx).With("ns", namespace, "name", name)
	msgSym := "KubeClient:WaitServiceAddress"
	logger.Info(ctx, msgSym+"/s")

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 2 * time.Second
	b.MaxInterval = 15 * time.Second

	addr, err := backoff.Retry(ctx, func() (string, error) {
		svc, err := c.Clientset.CoreV1().Services(namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			if apierrors.IsNotFound(err) {
				return "", err
			}
			return "", backoff.Permanent(fmt.Errorf("get service %s/%s: %w", namespace, name, err))
		}
		if svc.Spec.Type != corev1.ServiceTypeLoadBalancer {
			return "", backoff.Permanent(fmt.Errorf("service %s/%s is %s, not LoadBalancer", namespace, name, svc.Spec.Type))
		}
		if a := ServiceAddress(svc); a != "" {
			return a, nil
		}
		return "", errAddressPending
	},
		backoff.WithBackOff(b),
		backoff.WithMaxElapsedTime(timeout),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Debug(ctx, msgSym+"/retry", "err", err, "next", next)
		}),
	)
	if err != nil {
		logger.Info(ctx, msgSym+"/efail", "err", err)
		return "", fmt.Errorf("wait for address of service %s/%s: %w", namespace, name, err)
	}
	logger.Info(ctx, msgSym+"/eok", "address", addr)
	return addr, nil
}
