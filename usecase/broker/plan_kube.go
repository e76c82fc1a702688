package broker

import (
	"strconv"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/utils/ptr"

	"github.com/yaegashi/iotops/adapters/kube"
	"github.com/yaegashi/iotops/config/iotcfg"
	"github.com/yaegashi/iotops/domain/model"
	"github.com/yaegashi/iotops/internal/naming"
	"github.com/yaegashi/iotops/internal/render"
)

// PlanKube declares the broker on the orchestrated backend: namespace, TLS
// certificate, config maps, data claim, deployment, LoadBalancer service and
// the mqtts outputs.
func PlanKube(cfg *iotcfg.ComponentConfig) ([]*model.Resource, error) {
	hostname := cfg.Mosquitto.Hostname
	if hostname == "" {
		return nil, model.NewConfigError("mosquitto.hostname", "required for the kubernetes backend")
	}
	ns := naming.BrokerNamespace

	configData := map[string]string{"mosquitto.conf": render.MosquittoConfig()}
	passwordData := map[string]string{"password.txt": render.PasswordFile(cfg.Mosquitto.Passwords)}
	pvc, err := kube.BuildPVC(ns, naming.BrokerClaim, DataSize)
	if err != nil {
		return nil, err
	}

	labels := map[string]string{kube.LabelAppSelector: naming.BrokerName}
	intent := &model.ServiceIntent{
		Name:   naming.BrokerName,
		Image:  Image(cfg.Mosquitto.Version),
		Labels: labels,
		Ports:  []model.PortIntent{{Name: "mqtts", Container: MQTTSPort}},
		Mounts: []model.MountIntent{
			{Name: "certs", Source: model.MountSecretDir, Ref: naming.BrokerTLSSecret, Path: "/mosquitto/certs/", Mode: ptr.To[int32](0o600)},
			{Name: "data", Source: model.MountVolume, Ref: naming.BrokerClaim, Path: "/mosquitto/data/"},
			{Name: "config", Source: model.MountConfigFile, Ref: naming.BrokerConfigMap, Key: "mosquitto.conf", Path: "/mosquitto/config/mosquitto.conf", ReadOnly: true},
			{Name: "password", Source: model.MountConfigFile, Ref: naming.BrokerPasswordMap, Key: "password.txt", Path: "/mosquitto/config/password.txt", ReadOnly: true, Mode: ptr.To[int32](0o600)},
		},
		RunAs: ptr.To(RunAsID),
	}
	hash := kube.ComputeContentHash(map[string]string{
		"mosquitto.conf": configData["mosquitto.conf"],
		"password.txt":   passwordData["password.txt"],
	})
	dep, err := kube.BuildDeployment(ns, intent, kube.DeploymentOptions{
		Replicas:       1,
		PodAnnotations: map[string]string{kube.AnnotationConfigHash: hash},
		FSGroup:        ptr.To(RunAsID),
	})
	if err != nil {
		return nil, err
	}
	svc := kube.BuildService(ns, naming.BrokerService, labels, intent.Ports, kube.ExposeOptions{
		Type:                  corev1.ServiceTypeLoadBalancer,
		ExternalTrafficPolicy: corev1.ServiceExternalTrafficPolicyLocal,
	})
	cert := kube.BuildCertificate(kube.CertificateSpec{
		Name:       naming.BrokerCertName,
		Namespace:  ns,
		SecretName: naming.BrokerTLSSecret,
		DNSNames:   []string{hostname},
		IssuerName: ClusterIssuer,
		IssuerKind: "ClusterIssuer",
	})

	obj := func(id string, spec *kube.ObjectSpec, deps ...string) *model.Resource {
		return &model.Resource{ID: id, Kind: model.KindKubeObject, Spec: spec, DependsOn: deps}
	}
	return []*model.Resource{
		obj(IDNamespace, &kube.ObjectSpec{Object: kube.BuildNamespace(ns)}),
		obj(IDCertificate, &kube.ObjectSpec{Object: cert}, IDNamespace),
		obj(IDConfig, &kube.ObjectSpec{Object: kube.BuildConfigMap(ns, naming.BrokerConfigMap, configData)}, IDNamespace),
		obj(IDPassword, &kube.ObjectSpec{Object: kube.BuildConfigMap(ns, naming.BrokerPasswordMap, passwordData)}, IDNamespace),
		obj(IDClaim, &kube.ObjectSpec{Object: pvc}, IDNamespace),
		obj(IDDeployment, &kube.ObjectSpec{Object: dep}, IDCertificate, IDConfig, IDPassword, IDClaim),
		obj(IDService, &kube.ObjectSpec{Object: svc, WaitAddress: true}, IDDeployment),
		{
			ID:        outputID(OutputAddress),
			Kind:      model.KindOutput,
			Spec:      &model.OutputSpec{Name: OutputAddress, From: IDService, Attribute: "address"},
			DependsOn: []string{IDService},
		},
		{ID: outputID(OutputPort), Kind: model.KindOutput, Spec: &model.OutputSpec{Name: OutputPort, Value: strconv.Itoa(MQTTSPort)}},
		{ID: outputID(OutputHostname), Kind: model.KindOutput, Spec: &model.OutputSpec{Name: OutputHostname, Value: hostname}},
	}, nil
}
