package kube

import (
	"fmt"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/utils/ptr"

	"github.com/yaegashi/iotops/domain/model"
)

func typeMeta(apiVersion, kind string) metav1.TypeMeta {
	return metav1.TypeMeta{APIVersion: apiVersion, Kind: kind}
}

// BuildNamespace returns a Namespace carrying the managed-by label.
func BuildNamespace(name string) *corev1.Namespace {
	return &corev1.Namespace{
		TypeMeta: typeMeta("v1", "Namespace"),
		ObjectMeta: metav1.ObjectMeta{
			Name:   name,
			Labels: map[string]string{LabelAppK8sManagedBy: ManagedBy},
		},
	}
}

// BuildConfigMap returns a ConfigMap with string data.
func BuildConfigMap(namespace, name string, data map[string]string) *corev1.ConfigMap {
	return &corev1.ConfigMap{
		TypeMeta: typeMeta("v1", "ConfigMap"),
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
			Labels:    map[string]string{LabelAppK8sManagedBy: ManagedBy},
		},
		Data: data,
	}
}

// BuildSecret returns an Opaque Secret with string data.
func BuildSecret(namespace, name string, data map[string]string) *corev1.Secret {
	return &corev1.Secret{
		TypeMeta: typeMeta("v1", "Secret"),
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
			Labels:    map[string]string{LabelAppK8sManagedBy: ManagedBy},
		},
		Type:       corev1.SecretTypeOpaque,
		StringData: data,
	}
}

// BuildPVC returns a ReadWriteOnce claim of size (e.g. "1Gi").
func BuildPVC(namespace, name, size string) (*corev1.PersistentVolumeClaim, error) {
	q, err := resource.ParseQuantity(size)
	if err != nil {
		return nil, fmt.Errorf("pvc %s: invalid size %q: %w", name, size, err)
	}
	return &corev1.PersistentVolumeClaim{
		TypeMeta: typeMeta("v1", "PersistentVolumeClaim"),
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
			Labels:    map[string]string{LabelAppK8sManagedBy: ManagedBy},
		},
		Spec: corev1.PersistentVolumeClaimSpec{
			AccessModes: []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce},
			Resources: corev1.VolumeResourceRequirements{
				Requests: corev1.ResourceList{corev1.ResourceStorage: q},
			},
		},
	}, nil
}

// CertificateSpec is the subset of a cert-manager Certificate iotops declares.
type CertificateSpec struct {
	Name       string
	Namespace  string
	SecretName string
	DNSNames   []string
	IssuerName string
	IssuerKind string
}

// BuildCertificate returns a cert-manager.io/v1 Certificate as an unstructured object.
func BuildCertificate(c CertificateSpec) *unstructured.Unstructured {
	dnsNames := make([]any, 0, len(c.DNSNames))
	for _, n := range c.DNSNames {
		dnsNames = append(dnsNames, n)
	}
	return &unstructured.Unstructured{Object: map[string]any{
		"apiVersion": "cert-manager.io/v1",
		"kind":       "Certificate",
		"metadata": map[string]any{
			"name":      c.Name,
			"namespace": c.Namespace,
			"labels":    map[string]any{LabelAppK8sManagedBy: ManagedBy},
		},
		"spec": map[string]any{
			"secretName": c.SecretName,
			"dnsNames":   dnsNames,
			"issuerRef": map[string]any{
				"name": c.IssuerName,
				"kind": c.IssuerKind,
			},
		},
	}}
}

// DeploymentOptions tunes BuildDeployment.
type DeploymentOptions struct {
	Replicas       int32
	PodAnnotations map[string]string
	// FSGroup sets the pod fsGroup and, with RunAs, runAsNonRoot.
	FSGroup *int64
}

// BuildDeployment translates a service intent into a single-container Deployment.
// The pod selector is intent.Labels.
func BuildDeployment(namespace string, in *model.ServiceIntent, opts DeploymentOptions) (*appsv1.Deployment, error) {
	if in.Name == "" || in.Image == "" {
		return nil, fmt.Errorf("service intent requires name and image")
	}
	if len(in.Labels) == 0 {
		return nil, fmt.Errorf("service %s: labels are required for the pod selector", in.Name)
	}
	replicas := opts.Replicas
	if replicas <= 0 {
		replicas = 1
	}

	container := corev1.Container{Name: in.Name, Image: in.Image}
	for _, p := range in.Ports {
		container.Ports = append(container.Ports, corev1.ContainerPort{
			Name:          p.Name,
			ContainerPort: int32(p.Container),
			Protocol:      corev1.ProtocolTCP,
		})
	}
	for _, e := range in.Env {
		env := corev1.EnvVar{Name: e.Name, Value: e.Value}
		if e.SecretRef != "" {
			env.Value = ""
			env.ValueFrom = &corev1.EnvVarSource{SecretKeyRef: &corev1.SecretKeySelector{
				LocalObjectReference: corev1.LocalObjectReference{Name: e.SecretRef},
				Key:                  e.SecretKey,
			}}
		}
		container.Env = append(container.Env, env)
	}

	var volumes []corev1.Volume
	seen := map[string]bool{}
	for _, m := range in.Mounts {
		vm := corev1.VolumeMount{Name: m.Name, MountPath: m.Path, ReadOnly: m.ReadOnly}
		var src corev1.VolumeSource
		switch m.Source {
		case model.MountConfigFile:
			if m.Key == "" {
				return nil, fmt.Errorf("service %s: mount %s needs a key", in.Name, m.Name)
			}
			vm.SubPath = m.Key
			src.ConfigMap = &corev1.ConfigMapVolumeSource{
				LocalObjectReference: corev1.LocalObjectReference{Name: m.Ref},
				DefaultMode:          m.Mode,
			}
		case model.MountSecretDir:
			src.Secret = &corev1.SecretVolumeSource{SecretName: m.Ref, DefaultMode: m.Mode}
		case model.MountVolume:
			src.PersistentVolumeClaim = &corev1.PersistentVolumeClaimVolumeSource{ClaimName: m.Ref}
		case model.MountHostPath:
			src.HostPath = &corev1.HostPathVolumeSource{Path: m.Ref}
		default:
			return nil, fmt.Errorf("service %s: mount %s has unknown source %q", in.Name, m.Name, m.Source)
		}
		container.VolumeMounts = append(container.VolumeMounts, vm)
		if !seen[m.Name] {
			seen[m.Name] = true
			volumes = append(volumes, corev1.Volume{Name: m.Name, VolumeSource: src})
		}
	}

	pod := corev1.PodSpec{Containers: []corev1.Container{container}, Volumes: volumes}
	if in.RunAs != nil || opts.FSGroup != nil {
		sc := &corev1.PodSecurityContext{FSGroup: opts.FSGroup}
		if in.RunAs != nil {
			sc.RunAsUser = ptr.To(*in.RunAs)
			sc.RunAsGroup = ptr.To(*in.RunAs)
			sc.RunAsNonRoot = ptr.To(*in.RunAs != 0)
		}
		pod.SecurityContext = sc
	}

	labels := copyLabels(in.Labels)
	labels[LabelAppK8sManagedBy] = ManagedBy
	return &appsv1.Deployment{
		TypeMeta: typeMeta("apps/v1", "Deployment"),
		ObjectMeta: metav1.ObjectMeta{
			Name:      in.Name,
			Namespace: namespace,
			Labels:    labels,
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: ptr.To(replicas),
			Selector: &metav1.LabelSelector{MatchLabels: copyLabels(in.Labels)},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Labels:      copyLabels(in.Labels),
					Annotations: opts.PodAnnotations,
				},
				Spec: pod,
			},
		},
	}, nil
}

// ExposeOptions tunes BuildService.
type ExposeOptions struct {
	Type                  corev1.ServiceType
	ExternalTrafficPolicy corev1.ServiceExternalTrafficPolicy
}

// BuildService exposes the named container ports of pods matching selector.
// Each port is published on its container port number and targets the port by name.
func BuildService(namespace, name string, selector map[string]string, ports []model.PortIntent, opts ExposeOptions) *corev1.Service {
	svc := &corev1.Service{
		TypeMeta: typeMeta("v1", "Service"),
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
			Labels:    map[string]string{LabelAppK8sManagedBy: ManagedBy},
		},
		Spec: corev1.ServiceSpec{
			Type:                  opts.Type,
			Selector:              copyLabels(selector),
			ExternalTrafficPolicy: opts.ExternalTrafficPolicy,
		},
	}
	for _, p := range ports {
		target := intstr.FromInt32(int32(p.Container))
		if p.Name != "" {
			target = intstr.FromString(p.Name)
		}
		svc.Spec.Ports = append(svc.Spec.Ports, corev1.ServicePort{
			Name:       p.Name,
			Port:       int32(p.Container),
			TargetPort: target,
			Protocol:   corev1.ProtocolTCP,
		})
	}
	return svc
}

func copyLabels(in map[string]string) map[string]string {
	out := make(map[string]string, len(in)+1)
	for k, v := range in {
		out[k] = v
	}
	return out
}
